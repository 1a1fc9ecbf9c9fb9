// Package workflow implements the stage-gated transition engine for
// residence cases. All validation is pure and side-effect free; the only
// mutation happens in a single commit step on a deep copy of the case, so a
// rejected update never leaves a partially applied state behind.
package workflow

import (
	"fmt"
	"time"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// StageUpdate is one proposed mutation of a single stage record.
type StageUpdate struct {
	Stage residence.StageNumber

	// Fields is the typed value set for the stage; nil when the update only
	// carries an attachment or a completion flag.
	Fields residence.StageFields

	// Charge selects the payer for the stage's cost. Validated against the
	// lookup snapshot whenever present.
	Charge *residence.ChargedEntityRef

	// AttachmentRef is the stored reference of a file uploaded with this
	// update, empty when none was supplied.
	AttachmentRef string

	MarkComplete bool
}

// ApplyUpdate validates upd against c and the lookup snapshot and, on
// success, returns a new case state with the update committed. The input
// case is never mutated. All rejections are *residence.TransitionError;
// anything else indicates a malformed request.
func ApplyUpdate(c *residence.Case, upd StageUpdate, lookups *residence.LookupSet) (*residence.Case, error) {
	if c.Cancelled {
		return nil, residence.ErrCaseTerminal
	}
	if c.OnHold {
		return nil, residence.ErrCaseOnHold
	}
	if !upd.Stage.IsValid() {
		return nil, fmt.Errorf("workflow: invalid stage number %d", upd.Stage)
	}
	def := residence.DefinitionFor(upd.Stage)

	if upd.Fields != nil && upd.Fields.StageNumber() != upd.Stage {
		return nil, fmt.Errorf("workflow: fields for stage %d submitted to stage %d",
			upd.Fields.StageNumber(), upd.Stage)
	}

	// Gating: completing stage N requires N-1 to be completed already.
	// Re-editing an already-completed stage does not re-check later stages.
	if upd.MarkComplete && upd.Stage > residence.StageOfferLetter {
		if !c.StageCompleted(upd.Stage - 1) {
			return nil, residence.ErrPriorStageIncomplete
		}
	}

	existing := c.RecordIfExists(upd.Stage)
	merged := mergedValues(existing, upd.Fields)

	if upd.MarkComplete {
		for _, f := range def.RequiredFields {
			if merged[f] == "" {
				return nil, residence.NewMissingFieldError(f)
			}
		}
	}

	effectiveCharge := upd.Charge
	if effectiveCharge == nil && existing != nil {
		effectiveCharge = existing.Charge
	}
	if def.Chargeable {
		if upd.Charge != nil {
			if err := residence.ValidateCharge(*upd.Charge, lookups); err != nil {
				return nil, err
			}
		}
		if upd.MarkComplete && effectiveCharge == nil {
			return nil, residence.ErrMissingChargeOption
		}
	}

	// A mandatory document may arrive on any earlier partial update; it is
	// only enforced at completion time.
	if upd.MarkComplete && def.FileField != "" && def.FileRequired {
		if upd.AttachmentRef == "" && (existing == nil || existing.AttachmentRef == "") {
			return nil, residence.ErrMissingAttachment
		}
	}

	// Commit.
	next := c.Clone()
	rec := next.Record(upd.Stage)
	for f, v := range merged {
		rec.Values[f] = v
	}
	if upd.Charge != nil {
		ref := *upd.Charge
		rec.Charge = &ref
	}
	if upd.AttachmentRef != "" {
		rec.AttachmentRef = upd.AttachmentRef
	}
	if upd.MarkComplete {
		if !rec.Completed {
			now := time.Now().UTC()
			rec.CompletedAt = &now
		}
		rec.Completed = true
	} else {
		rec.Completed = false
		rec.CompletedAt = nil
	}
	next.RecomputeProgress()
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// mergedValues overlays the submitted fields on the stored ones without
// touching either, giving the validation steps the post-update view.
func mergedValues(existing *residence.StageRecord, fields residence.StageFields) map[residence.FieldName]string {
	merged := make(map[residence.FieldName]string)
	if existing != nil {
		for f, v := range existing.Values {
			merged[f] = v
		}
	}
	if fields != nil {
		for f, v := range fields.Values() {
			merged[f] = v
		}
	}
	return merged
}
