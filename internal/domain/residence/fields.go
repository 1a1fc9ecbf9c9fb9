package residence

import "fmt"

// StageFields is the typed value set submitted for one stage. Each stage has
// its own closed struct; a zero field means "not supplied" and leaves the
// stored value untouched, which is what makes partial updates possible.
type StageFields interface {
	// StageNumber identifies which stage the variant belongs to.
	StageNumber() StageNumber

	// Values returns the supplied (non-zero) fields as a value map.
	Values() map[FieldName]string
}

type fieldValue struct {
	name  FieldName
	value string
}

func valueMap(pairs ...fieldValue) map[FieldName]string {
	out := make(map[FieldName]string, len(pairs))
	for _, p := range pairs {
		if p.value != "" {
			out[p.name] = p.value
		}
	}
	return out
}

// OfferLetterFields carries stage 1 data.
type OfferLetterFields struct {
	MBNumber string
	Company  string
	Cost     string
	Currency string
}

func (OfferLetterFields) StageNumber() StageNumber { return StageOfferLetter }

func (f OfferLetterFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldMBNumber, f.MBNumber},
		fieldValue{FieldCompany, f.Company},
		fieldValue{FieldOfferLetterCost, f.Cost},
		fieldValue{FieldOfferLetterCostCur, f.Currency},
	)
}

// InsuranceFields carries stage 2 data.
type InsuranceFields struct {
	PolicyNumber string
	Cost         string
	Currency     string
}

func (InsuranceFields) StageNumber() StageNumber { return StageInsurance }

func (f InsuranceFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldInsurancePolicyNo, f.PolicyNumber},
		fieldValue{FieldInsuranceCost, f.Cost},
		fieldValue{FieldInsuranceCostCur, f.Currency},
	)
}

// LabourCardFields carries stage 3 data.
type LabourCardFields struct {
	CardNumber string
	Cost       string
	Currency   string
}

func (LabourCardFields) StageNumber() StageNumber { return StageLabourCard }

func (f LabourCardFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldLabourCardNo, f.CardNumber},
		fieldValue{FieldLabourCardCost, f.Cost},
		fieldValue{FieldLabourCardCostCur, f.Currency},
	)
}

// EVisaFields carries stage 4 data.
type EVisaFields struct {
	VisaNumber string
	Cost       string
	Currency   string
}

func (EVisaFields) StageNumber() StageNumber { return StageEVisa }

func (f EVisaFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldEVisaNo, f.VisaNumber},
		fieldValue{FieldEVisaCost, f.Cost},
		fieldValue{FieldEVisaCostCur, f.Currency},
	)
}

// StatusChangeFields carries stage 5 data.
type StatusChangeFields struct {
	ChangeDate string
	Cost       string
	Currency   string
}

func (StatusChangeFields) StageNumber() StageNumber { return StageStatusChange }

func (f StatusChangeFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldStatusChangeDate, f.ChangeDate},
		fieldValue{FieldStatusChangeCost, f.Cost},
		fieldValue{FieldStatusChangeCostCur, f.Currency},
	)
}

// MedicalFields carries stage 6 data.
type MedicalFields struct {
	MedicalDate string
	Cost        string
	Currency    string
}

func (MedicalFields) StageNumber() StageNumber { return StageMedical }

func (f MedicalFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldMedicalDate, f.MedicalDate},
		fieldValue{FieldMedicalCost, f.Cost},
		fieldValue{FieldMedicalCostCur, f.Currency},
	)
}

// EmiratesIDFields carries stage 7 data.
type EmiratesIDFields struct {
	ApplicationNumber string
	Cost              string
	Currency          string
}

func (EmiratesIDFields) StageNumber() StageNumber { return StageEmiratesID }

func (f EmiratesIDFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldEIDApplicationNo, f.ApplicationNumber},
		fieldValue{FieldEIDCost, f.Cost},
		fieldValue{FieldEIDCostCur, f.Currency},
	)
}

// VisaStampingFields carries stage 8 data.
type VisaStampingFields struct {
	VisaNumber string
	VisaExpiry string
	Cost       string
	Currency   string
}

func (VisaStampingFields) StageNumber() StageNumber { return StageVisaStamping }

func (f VisaStampingFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldVisaNo, f.VisaNumber},
		fieldValue{FieldVisaExpiry, f.VisaExpiry},
		fieldValue{FieldStampingCost, f.Cost},
		fieldValue{FieldStampingCostCur, f.Currency},
	)
}

// IDReceiptFields carries stage 9 data.
type IDReceiptFields struct {
	EIDNumber string
	EIDExpiry string
}

func (IDReceiptFields) StageNumber() StageNumber { return StageIDReceipt }

func (f IDReceiptFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldEIDNo, f.EIDNumber},
		fieldValue{FieldEIDExpiry, f.EIDExpiry},
	)
}

// IDDeliveryFields carries stage 10 data.
type IDDeliveryFields struct {
	DeliveredTo  string
	DeliveryDate string
}

func (IDDeliveryFields) StageNumber() StageNumber { return StageIDDelivery }

func (f IDDeliveryFields) Values() map[FieldName]string {
	return valueMap(
		fieldValue{FieldDeliveredTo, f.DeliveredTo},
		fieldValue{FieldDeliveryDate, f.DeliveryDate},
	)
}

// FieldsForStage decodes a raw field/value map into the typed variant of the
// given stage. Field names that do not belong to the stage are rejected so a
// typo cannot silently drop data. The stage's document field is not accepted
// here; attachments travel separately.
func FieldsForStage(n StageNumber, raw map[string]string) (StageFields, error) {
	def := DefinitionFor(n)
	for name := range raw {
		f := FieldName(name)
		if f == def.FileField || !def.ownsField(f) {
			return nil, fmt.Errorf("residence: stage %d (%s) has no field %q", n, def.Title, name)
		}
	}
	get := func(f FieldName) string { return raw[string(f)] }

	switch n {
	case StageOfferLetter:
		return OfferLetterFields{
			MBNumber: get(FieldMBNumber),
			Company:  get(FieldCompany),
			Cost:     get(FieldOfferLetterCost),
			Currency: get(FieldOfferLetterCostCur),
		}, nil
	case StageInsurance:
		return InsuranceFields{
			PolicyNumber: get(FieldInsurancePolicyNo),
			Cost:         get(FieldInsuranceCost),
			Currency:     get(FieldInsuranceCostCur),
		}, nil
	case StageLabourCard:
		return LabourCardFields{
			CardNumber: get(FieldLabourCardNo),
			Cost:       get(FieldLabourCardCost),
			Currency:   get(FieldLabourCardCostCur),
		}, nil
	case StageEVisa:
		return EVisaFields{
			VisaNumber: get(FieldEVisaNo),
			Cost:       get(FieldEVisaCost),
			Currency:   get(FieldEVisaCostCur),
		}, nil
	case StageStatusChange:
		return StatusChangeFields{
			ChangeDate: get(FieldStatusChangeDate),
			Cost:       get(FieldStatusChangeCost),
			Currency:   get(FieldStatusChangeCostCur),
		}, nil
	case StageMedical:
		return MedicalFields{
			MedicalDate: get(FieldMedicalDate),
			Cost:        get(FieldMedicalCost),
			Currency:    get(FieldMedicalCostCur),
		}, nil
	case StageEmiratesID:
		return EmiratesIDFields{
			ApplicationNumber: get(FieldEIDApplicationNo),
			Cost:              get(FieldEIDCost),
			Currency:          get(FieldEIDCostCur),
		}, nil
	case StageVisaStamping:
		return VisaStampingFields{
			VisaNumber: get(FieldVisaNo),
			VisaExpiry: get(FieldVisaExpiry),
			Cost:       get(FieldStampingCost),
			Currency:   get(FieldStampingCostCur),
		}, nil
	case StageIDReceipt:
		return IDReceiptFields{
			EIDNumber: get(FieldEIDNo),
			EIDExpiry: get(FieldEIDExpiry),
		}, nil
	case StageIDDelivery:
		return IDDeliveryFields{
			DeliveredTo:  get(FieldDeliveredTo),
			DeliveryDate: get(FieldDeliveryDate),
		}, nil
	}
	// DefinitionFor already panicked for anything out of range.
	return nil, fmt.Errorf("residence: unknown stage %d", n)
}
