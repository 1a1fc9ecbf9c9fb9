package residence

import "time"

// StageRecord is the persisted value bag for one stage of one case. A case
// owns at most one record per stage number; records are created lazily the
// first time a stage is touched.
type StageRecord struct {
	Stage         StageNumber
	Values        map[FieldName]string
	Charge        *ChargedEntityRef
	AttachmentRef string
	Completed     bool
	CompletedAt   *time.Time
}

// Value returns the stored value of a field, or "" when unset.
func (r *StageRecord) Value(f FieldName) string {
	if r == nil || r.Values == nil {
		return ""
	}
	return r.Values[f]
}

func (r *StageRecord) clone() *StageRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Values = make(map[FieldName]string, len(r.Values))
	for k, v := range r.Values {
		cp.Values[k] = v
	}
	if r.Charge != nil {
		ref := *r.Charge
		cp.Charge = &ref
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Case is one subject's end-to-end residence processing record. The backing
// store owns it; the engine only works on an in-memory projection while
// processing a single update.
type Case struct {
	ID             int64
	Name           string
	PassportNumber string
	DateOfBirth    string
	Gender         string
	Nationality    string
	SalePrice      float64
	Currency       string

	// Progress is the highest N such that stages 1..N are all completed.
	Progress int

	Cancelled           bool
	OnHold              bool
	CancellationCharge  float64
	CancellationRemarks string

	Stages  map[StageNumber]*StageRecord
	Custody *CustodyRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record returns the stage record for n, creating an empty one on first use.
func (c *Case) Record(n StageNumber) *StageRecord {
	if c.Stages == nil {
		c.Stages = make(map[StageNumber]*StageRecord)
	}
	rec, ok := c.Stages[n]
	if !ok {
		rec = &StageRecord{Stage: n, Values: make(map[FieldName]string)}
		c.Stages[n] = rec
	}
	return rec
}

// RecordIfExists returns the stage record for n without creating one.
func (c *Case) RecordIfExists(n StageNumber) *StageRecord {
	if c.Stages == nil {
		return nil
	}
	return c.Stages[n]
}

// StageCompleted reports whether stage n has been marked completed.
func (c *Case) StageCompleted(n StageNumber) bool {
	rec := c.RecordIfExists(n)
	return rec != nil && rec.Completed
}

// RecomputeProgress derives Progress as the length of the longest prefix
// 1..N of completed stages. Re-opening an earlier stage therefore drops
// Progress without touching later records.
func (c *Case) RecomputeProgress() {
	progress := 0
	for n := StageOfferLetter; n <= StageIDDelivery; n++ {
		if !c.StageCompleted(n) {
			break
		}
		progress = int(n)
	}
	c.Progress = progress
}

// NextActionable returns the stage the operator should work on next.
func (c *Case) NextActionable() StageNumber {
	if c.Progress >= StageCount {
		return StageIDDelivery
	}
	return StageNumber(c.Progress + 1)
}

// CompletionPercent returns the share of completed stages, 0..100.
func (c *Case) CompletionPercent() float64 {
	done := 0
	for n := StageOfferLetter; n <= StageIDDelivery; n++ {
		if c.StageCompleted(n) {
			done++
		}
	}
	return float64(done) / float64(StageCount) * 100
}

// CustodyStatus returns the card-custody status, Pending when the custody
// record has not been touched yet.
func (c *Case) CustodyStatus() CustodyStatus {
	if c.Custody == nil || c.Custody.Status == "" {
		return CustodyPending
	}
	return c.Custody.Status
}

// Clone returns a deep copy of the case. The engine validates against the
// original and commits into a clone, so a rejected update leaves the caller's
// projection untouched.
func (c *Case) Clone() *Case {
	cp := *c
	if c.Stages != nil {
		cp.Stages = make(map[StageNumber]*StageRecord, len(c.Stages))
		for n, rec := range c.Stages {
			cp.Stages[n] = rec.clone()
		}
	}
	cp.Custody = c.Custody.clone()
	return &cp
}
