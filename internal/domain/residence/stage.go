package residence

import "fmt"

// FieldName identifies one persisted field of a stage record. Several stages
// carry similarly named fields (cost, currency, document) that are distinct
// per stage, so every stage owns its own set of names.
type FieldName string

// Stage 1 - Offer Letter
const (
	FieldMBNumber           FieldName = "mb_number"
	FieldCompany            FieldName = "company"
	FieldOfferLetterCost    FieldName = "offer_letter_cost"
	FieldOfferLetterCostCur FieldName = "offer_letter_cost_cur"
	FieldOfferLetterDoc     FieldName = "offer_letter_doc"
)

// Stage 2 - Insurance
const (
	FieldInsurancePolicyNo FieldName = "insurance_policy_no"
	FieldInsuranceCost     FieldName = "insurance_cost"
	FieldInsuranceCostCur  FieldName = "insurance_cost_cur"
	FieldInsuranceDoc      FieldName = "insurance_doc"
)

// Stage 3 - Labour Card
const (
	FieldLabourCardNo      FieldName = "labour_card_no"
	FieldLabourCardCost    FieldName = "labour_card_cost"
	FieldLabourCardCostCur FieldName = "labour_card_cost_cur"
	FieldLabourCardDoc     FieldName = "labour_card_doc"
)

// Stage 4 - E-Visa
const (
	FieldEVisaNo      FieldName = "evisa_no"
	FieldEVisaCost    FieldName = "evisa_cost"
	FieldEVisaCostCur FieldName = "evisa_cost_cur"
	FieldEVisaDoc     FieldName = "evisa_doc"
)

// Stage 5 - Status Change
const (
	FieldStatusChangeDate    FieldName = "status_change_date"
	FieldStatusChangeCost    FieldName = "status_change_cost"
	FieldStatusChangeCostCur FieldName = "status_change_cost_cur"
	FieldStatusChangeDoc     FieldName = "status_change_doc"
)

// Stage 6 - Medical
const (
	FieldMedicalDate    FieldName = "medical_date"
	FieldMedicalCost    FieldName = "medical_cost"
	FieldMedicalCostCur FieldName = "medical_cost_cur"
	FieldMedicalDoc     FieldName = "medical_doc"
)

// Stage 7 - Emirates ID application
const (
	FieldEIDApplicationNo  FieldName = "eid_application_no"
	FieldEIDCost           FieldName = "eid_cost"
	FieldEIDCostCur        FieldName = "eid_cost_cur"
	FieldEIDApplicationDoc FieldName = "eid_application_doc"
)

// Stage 8 - Visa Stamping
const (
	FieldVisaNo          FieldName = "visa_no"
	FieldVisaExpiry      FieldName = "visa_expiry"
	FieldStampingCost    FieldName = "stamping_cost"
	FieldStampingCostCur FieldName = "stamping_cost_cur"
	FieldVisaStampDoc    FieldName = "visa_stamp_doc"
)

// Stage 9 - ID Receipt
const (
	FieldEIDNo     FieldName = "eid_no"
	FieldEIDExpiry FieldName = "eid_expiry"
)

// Stage 10 - ID Delivery
const (
	FieldDeliveredTo  FieldName = "delivered_to"
	FieldDeliveryDate FieldName = "delivery_date"
)

// StageNumber is the ordinal of a pipeline stage, 1..10.
type StageNumber int

const (
	StageOfferLetter StageNumber = iota + 1
	StageInsurance
	StageLabourCard
	StageEVisa
	StageStatusChange
	StageMedical
	StageEmiratesID
	StageVisaStamping
	StageIDReceipt
	StageIDDelivery
)

// StageCount is the number of stages in the main pipeline.
const StageCount = 10

// IsValid returns true if n is a defined stage number.
func (n StageNumber) IsValid() bool {
	return n >= StageOfferLetter && n <= StageIDDelivery
}

// Stage is the immutable definition of one pipeline stage.
type Stage struct {
	Number         StageNumber
	Title          string
	Icon           string
	RequiredFields []FieldName
	Chargeable     bool
	CostField      FieldName
	CurrencyField  FieldName
	FileField      FieldName
	FileRequired   bool
}

// The ten stages are fixed content, not user configurable. For chargeable
// stages the cost and currency fields are part of RequiredFields; the charge
// option and charged entity are validated separately because which entity
// list applies depends on the chosen option.
var stages = [StageCount]Stage{
	{
		Number:         StageOfferLetter,
		Title:          "Offer Letter",
		Icon:           "file-text",
		RequiredFields: []FieldName{FieldMBNumber, FieldCompany, FieldOfferLetterCost, FieldOfferLetterCostCur},
		Chargeable:     true,
		CostField:      FieldOfferLetterCost,
		CurrencyField:  FieldOfferLetterCostCur,
		FileField:      FieldOfferLetterDoc,
	},
	{
		Number:         StageInsurance,
		Title:          "Insurance",
		Icon:           "shield",
		RequiredFields: []FieldName{FieldInsurancePolicyNo, FieldInsuranceCost, FieldInsuranceCostCur},
		Chargeable:     true,
		CostField:      FieldInsuranceCost,
		CurrencyField:  FieldInsuranceCostCur,
		FileField:      FieldInsuranceDoc,
	},
	{
		Number:         StageLabourCard,
		Title:          "Labour Card",
		Icon:           "credit-card",
		RequiredFields: []FieldName{FieldLabourCardNo, FieldLabourCardCost, FieldLabourCardCostCur},
		Chargeable:     true,
		CostField:      FieldLabourCardCost,
		CurrencyField:  FieldLabourCardCostCur,
		FileField:      FieldLabourCardDoc,
		FileRequired:   true,
	},
	{
		Number:         StageEVisa,
		Title:          "E-Visa",
		Icon:           "globe",
		RequiredFields: []FieldName{FieldEVisaNo, FieldEVisaCost, FieldEVisaCostCur},
		Chargeable:     true,
		CostField:      FieldEVisaCost,
		CurrencyField:  FieldEVisaCostCur,
		FileField:      FieldEVisaDoc,
		FileRequired:   true,
	},
	{
		Number:         StageStatusChange,
		Title:          "Status Change",
		Icon:           "refresh-cw",
		RequiredFields: []FieldName{FieldStatusChangeDate, FieldStatusChangeCost, FieldStatusChangeCostCur},
		Chargeable:     true,
		CostField:      FieldStatusChangeCost,
		CurrencyField:  FieldStatusChangeCostCur,
		FileField:      FieldStatusChangeDoc,
	},
	{
		Number:         StageMedical,
		Title:          "Medical",
		Icon:           "activity",
		RequiredFields: []FieldName{FieldMedicalDate, FieldMedicalCost, FieldMedicalCostCur},
		Chargeable:     true,
		CostField:      FieldMedicalCost,
		CurrencyField:  FieldMedicalCostCur,
		FileField:      FieldMedicalDoc,
	},
	{
		Number:         StageEmiratesID,
		Title:          "Emirates ID",
		Icon:           "user-check",
		RequiredFields: []FieldName{FieldEIDApplicationNo, FieldEIDCost, FieldEIDCostCur},
		Chargeable:     true,
		CostField:      FieldEIDCost,
		CurrencyField:  FieldEIDCostCur,
		FileField:      FieldEIDApplicationDoc,
	},
	{
		Number:         StageVisaStamping,
		Title:          "Visa Stamping",
		Icon:           "stamp",
		RequiredFields: []FieldName{FieldVisaNo, FieldVisaExpiry, FieldStampingCost, FieldStampingCostCur},
		Chargeable:     true,
		CostField:      FieldStampingCost,
		CurrencyField:  FieldStampingCostCur,
		FileField:      FieldVisaStampDoc,
		FileRequired:   true,
	},
	{
		Number:         StageIDReceipt,
		Title:          "ID Receipt",
		Icon:           "inbox",
		RequiredFields: []FieldName{FieldEIDNo, FieldEIDExpiry},
	},
	{
		Number:         StageIDDelivery,
		Title:          "ID Delivery",
		Icon:           "package",
		RequiredFields: []FieldName{FieldDeliveredTo, FieldDeliveryDate},
	},
}

// DefinitionFor returns the definition of the given stage. Unknown stage
// numbers are a programming error and panic.
func DefinitionFor(n StageNumber) Stage {
	if !n.IsValid() {
		panic(fmt.Sprintf("residence: unknown stage number %d", n))
	}
	return stages[n-1]
}

// AllStages returns the ten stage definitions in pipeline order.
func AllStages() []Stage {
	out := make([]Stage, StageCount)
	copy(out, stages[:])
	return out
}

// ownsField reports whether the given field belongs to the stage, either as a
// required data field or as its document field.
func (s Stage) ownsField(f FieldName) bool {
	if s.FileField != "" && f == s.FileField {
		return true
	}
	for _, rf := range s.RequiredFields {
		if rf == f {
			return true
		}
	}
	return false
}
