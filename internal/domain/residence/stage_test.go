package residence

import "testing"

func TestAllStagesOrderAndCount(t *testing.T) {
	all := AllStages()
	if len(all) != StageCount {
		t.Fatalf("expected %d stages, got %d", StageCount, len(all))
	}
	for i, st := range all {
		if int(st.Number) != i+1 {
			t.Errorf("stage at index %d has number %d", i, st.Number)
		}
		if st.Title == "" {
			t.Errorf("stage %d has no title", st.Number)
		}
		if len(st.RequiredFields) == 0 {
			t.Errorf("stage %d has no required fields", st.Number)
		}
	}
}

func TestChargeableStagesCarryCostFields(t *testing.T) {
	for _, st := range AllStages() {
		if !st.Chargeable {
			continue
		}
		if st.CostField == "" || st.CurrencyField == "" {
			t.Errorf("chargeable stage %d missing cost/currency fields", st.Number)
		}
		if !containsField(st.RequiredFields, st.CostField) {
			t.Errorf("stage %d cost field %q not required", st.Number, st.CostField)
		}
		if !containsField(st.RequiredFields, st.CurrencyField) {
			t.Errorf("stage %d currency field %q not required", st.Number, st.CurrencyField)
		}
	}
}

func TestHandoverStagesAreNotChargeable(t *testing.T) {
	for _, n := range []StageNumber{StageIDReceipt, StageIDDelivery} {
		def := DefinitionFor(n)
		if def.Chargeable {
			t.Errorf("stage %d should not be chargeable", n)
		}
		if def.FileField != "" {
			t.Errorf("stage %d should not have a document field", n)
		}
	}
}

func TestMandatoryDocumentStages(t *testing.T) {
	want := map[StageNumber]bool{
		StageLabourCard:   true,
		StageEVisa:        true,
		StageVisaStamping: true,
	}
	for _, st := range AllStages() {
		if st.FileRequired != want[st.Number] {
			t.Errorf("stage %d FileRequired = %v, want %v", st.Number, st.FileRequired, want[st.Number])
		}
	}
}

func TestDefinitionForPanicsOnInvalidStage(t *testing.T) {
	for _, n := range []StageNumber{0, 11, -3} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("DefinitionFor(%d) did not panic", n)
				}
			}()
			DefinitionFor(n)
		}()
	}
}

func TestStageNumberIsValid(t *testing.T) {
	if StageNumber(0).IsValid() || StageNumber(11).IsValid() {
		t.Error("out-of-range stage numbers reported valid")
	}
	for n := StageOfferLetter; n <= StageIDDelivery; n++ {
		if !n.IsValid() {
			t.Errorf("stage %d reported invalid", n)
		}
	}
}

func containsField(fields []FieldName, f FieldName) bool {
	for _, rf := range fields {
		if rf == f {
			return true
		}
	}
	return false
}
