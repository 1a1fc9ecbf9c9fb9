package http

import (
	"time"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// CaseResponse is the wire projection of a case.
type CaseResponse struct {
	ID                  int64                  `json:"id"`
	Name                string                 `json:"name"`
	PassportNumber      string                 `json:"passport_number"`
	DateOfBirth         string                 `json:"date_of_birth,omitempty"`
	Gender              string                 `json:"gender,omitempty"`
	Nationality         string                 `json:"nationality,omitempty"`
	SalePrice           float64                `json:"sale_price,omitempty"`
	Currency            string                 `json:"currency,omitempty"`
	Progress            int                    `json:"progress"`
	NextActionable      int                    `json:"next_actionable"`
	CompletionPercent   float64                `json:"completion_percent"`
	Cancelled           bool                   `json:"cancelled"`
	OnHold              bool                   `json:"on_hold"`
	CancellationCharge  float64                `json:"cancellation_charge,omitempty"`
	CancellationRemarks string                 `json:"cancellation_remarks,omitempty"`
	Stages              []StageRecordResponse  `json:"stages"`
	Custody             CustodyRecordResponse  `json:"custody"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// StageRecordResponse is the wire projection of one stage of a case.
type StageRecordResponse struct {
	Stage           int               `json:"stage"`
	Title           string            `json:"title"`
	Icon            string            `json:"icon"`
	Values          map[string]string `json:"values,omitempty"`
	ChargeOption    *int              `json:"charge_option,omitempty"`
	ChargedEntityID *int64            `json:"charged_entity_id,omitempty"`
	HasAttachment   bool              `json:"has_attachment"`
	Completed       bool              `json:"completed"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// CustodyRecordResponse is the wire projection of the custody sub-record.
type CustodyRecordResponse struct {
	Status        string     `json:"status"`
	CardNumber    string     `json:"card_number,omitempty"`
	CardExpiry    string     `json:"card_expiry,omitempty"`
	HolderName    string     `json:"holder_name,omitempty"`
	DateOfBirth   string     `json:"date_of_birth,omitempty"`
	Recipient     string     `json:"recipient,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	HasFrontImage bool       `json:"has_front_image"`
	HasBackImage  bool       `json:"has_back_image"`
}

func toCaseResponse(c *residence.Case) *CaseResponse {
	resp := &CaseResponse{
		ID:                  c.ID,
		Name:                c.Name,
		PassportNumber:      c.PassportNumber,
		DateOfBirth:         c.DateOfBirth,
		Gender:              c.Gender,
		Nationality:         c.Nationality,
		SalePrice:           c.SalePrice,
		Currency:            c.Currency,
		Progress:            c.Progress,
		NextActionable:      int(c.NextActionable()),
		CompletionPercent:   c.CompletionPercent(),
		Cancelled:           c.Cancelled,
		OnHold:              c.OnHold,
		CancellationCharge:  c.CancellationCharge,
		CancellationRemarks: c.CancellationRemarks,
		Custody:             toCustodyResponse(c),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}

	// All ten stages are always present in the response so clients render
	// the full pipeline without knowing the stage catalogue.
	resp.Stages = make([]StageRecordResponse, 0, residence.StageCount)
	for _, st := range residence.AllStages() {
		sr := StageRecordResponse{
			Stage: int(st.Number),
			Title: st.Title,
			Icon:  st.Icon,
		}
		if rec := c.RecordIfExists(st.Number); rec != nil {
			sr.Values = make(map[string]string, len(rec.Values))
			for f, v := range rec.Values {
				sr.Values[string(f)] = v
			}
			if rec.Charge != nil {
				opt := int(rec.Charge.Option())
				eid := rec.Charge.EntityID()
				sr.ChargeOption = &opt
				sr.ChargedEntityID = &eid
			}
			sr.HasAttachment = rec.AttachmentRef != ""
			sr.Completed = rec.Completed
			sr.CompletedAt = rec.CompletedAt
		}
		resp.Stages = append(resp.Stages, sr)
	}
	return resp
}

func toCustodyResponse(c *residence.Case) CustodyRecordResponse {
	out := CustodyRecordResponse{Status: c.CustodyStatus().String()}
	if c.Custody == nil {
		return out
	}
	out.CardNumber = c.Custody.CardNumber
	out.CardExpiry = c.Custody.CardExpiry
	out.HolderName = c.Custody.HolderName
	out.DateOfBirth = c.Custody.DateOfBirth
	out.Recipient = c.Custody.Recipient
	out.DeliveredAt = c.Custody.DeliveredAt
	out.HasFrontImage = c.Custody.FrontImageRef != ""
	out.HasBackImage = c.Custody.BackImageRef != ""
	return out
}

// LookupResponse is the wire projection of the reference-data snapshot.
type LookupResponse struct {
	Currencies     []CurrencyItem `json:"currencies"`
	Accounts       []EntityItem   `json:"accounts"`
	Suppliers      []EntityItem   `json:"suppliers"`
	CreditAccounts []EntityItem   `json:"credit_accounts"`
	Companies      []EntityItem   `json:"companies"`
	Positions      []EntityItem   `json:"positions"`
	Nationalities  []EntityItem   `json:"nationalities"`
	LoadedAt       time.Time      `json:"loaded_at"`
}

// CurrencyItem is one selectable currency.
type CurrencyItem struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// EntityItem is one selectable reference-data row.
type EntityItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toLookupResponse(set *residence.LookupSet) *LookupResponse {
	resp := &LookupResponse{LoadedAt: set.LoadedAt}
	for _, c := range set.Currencies {
		resp.Currencies = append(resp.Currencies, CurrencyItem{ID: c.ID, Code: c.Code, Name: c.Name})
	}
	resp.Accounts = toEntityItems(set.Accounts)
	resp.Suppliers = toEntityItems(set.Suppliers)
	resp.CreditAccounts = toEntityItems(set.CreditAccounts)
	for _, c := range set.Companies {
		resp.Companies = append(resp.Companies, EntityItem{ID: c.ID, Name: c.Name})
	}
	for _, p := range set.Positions {
		resp.Positions = append(resp.Positions, EntityItem{ID: p.ID, Name: p.Title})
	}
	for _, n := range set.Nationalities {
		resp.Nationalities = append(resp.Nationalities, EntityItem{ID: n.ID, Name: n.Name})
	}
	return resp
}

func toEntityItems(entities []residence.ChargeEntity) []EntityItem {
	out := make([]EntityItem, 0, len(entities))
	for _, e := range entities {
		out = append(out, EntityItem{ID: e.ID, Name: e.Name})
	}
	return out
}
