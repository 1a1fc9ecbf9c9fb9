package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/service"
	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/internal/lookup"
	"github.com/tadbeer/visaflow/internal/report"
)

// AttachmentResolver maps stored attachment references to readable paths.
type AttachmentResolver interface {
	Resolve(ref string) (string, error)
}

// Handlers contains all HTTP request handlers.
type Handlers struct {
	caseService    *service.CaseService
	custodyService *service.CustodyService
	lookups        *lookup.Provider
	exporter       *report.RegisterExporter
	attachments    AttachmentResolver
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	caseService *service.CaseService,
	custodyService *service.CustodyService,
	lookups *lookup.Provider,
	exporter *report.RegisterExporter,
	attachments AttachmentResolver,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		caseService:    caseService,
		custodyService: custodyService,
		lookups:        lookups,
		exporter:       exporter,
		attachments:    attachments,
		logger:         logger,
	}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetLookups handles GET /api/lookups.
func (h *Handlers) GetLookups(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: toLookupResponse(h.lookups.Snapshot())})
}

// RefreshLookups handles POST /api/lookups/refresh.
func (h *Handlers) RefreshLookups(c *gin.Context) {
	if err := h.lookups.Refresh(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toLookupResponse(h.lookups.Snapshot())})
}

// CreateCaseRequest is the intake payload.
type CreateCaseRequest struct {
	Name           string  `json:"name" binding:"required"`
	PassportNumber string  `json:"passport_number" binding:"required"`
	DateOfBirth    string  `json:"date_of_birth"`
	Gender         string  `json:"gender"`
	Nationality    string  `json:"nationality"`
	SalePrice      float64 `json:"sale_price"`
	Currency       string  `json:"currency"`
}

// CreateCase handles POST /api/cases.
func (h *Handlers) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	created, err := h.caseService.CreateCase(c.Request.Context(), service.NewCaseRequest{
		Name:           req.Name,
		PassportNumber: req.PassportNumber,
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Nationality:    req.Nationality,
		SalePrice:      req.SalePrice,
		Currency:       req.Currency,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toCaseResponse(created)})
}

// ListCases handles GET /api/cases.
func (h *Handlers) ListCases(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	cases, err := h.caseService.ListCases(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]*CaseResponse, 0, len(cases))
	for _, rc := range cases {
		out = append(out, toCaseResponse(rc))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetCase handles GET /api/cases/:id.
func (h *Handlers) GetCase(c *gin.Context) {
	id, ok := h.caseID(c)
	if !ok {
		return
	}
	rc, err := h.caseService.GetCase(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCaseResponse(rc)})
}

// stageUpdateBody is the JSON shape of a stage update without attachment.
type stageUpdateBody struct {
	Fields          map[string]string `json:"fields"`
	ChargeOption    *int              `json:"charge_option"`
	ChargedEntityID *int64            `json:"charged_entity_id"`
	MarkComplete    bool              `json:"mark_complete"`
}

// Reserved multipart keys that are not stage fields.
const (
	formKeyChargeOption    = "charge_option"
	formKeyChargedEntityID = "charged_entity_id"
	formKeyMarkComplete    = "mark_complete"
	formKeyAttachment      = "attachment"
)

// SubmitStageUpdate handles POST /api/cases/:id/stages/:stage. The update is
// accepted either as JSON or as a multipart form carrying an attachment.
func (h *Handlers) SubmitStageUpdate(c *gin.Context) {
	id, ok := h.caseID(c)
	if !ok {
		return
	}

	stageNo, err := strconv.Atoi(c.Param("stage"))
	if err != nil || !residence.StageNumber(stageNo).IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid stage number"})
		return
	}
	stage := residence.StageNumber(stageNo)

	var body stageUpdateBody
	var attachment *service.Upload
	if isMultipart(c) {
		body, attachment, err = h.parseMultipartStageUpdate(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	} else if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	req := service.SubmitStageRequest{
		Stage:        stage,
		Attachment:   attachment,
		MarkComplete: body.MarkComplete,
	}

	if len(body.Fields) > 0 {
		fields, err := residence.FieldsForStage(stage, body.Fields)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		req.Fields = fields
	}

	if body.ChargeOption != nil {
		if body.ChargedEntityID == nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "charged_entity_id is required when charge_option is set",
			})
			return
		}
		ref, err := residence.NewChargeRef(residence.ChargeOption(*body.ChargeOption), *body.ChargedEntityID)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		req.Charge = &ref
	}

	updated, err := h.caseService.SubmitStageUpdate(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCaseResponse(updated)})
}

func (h *Handlers) parseMultipartStageUpdate(c *gin.Context) (stageUpdateBody, *service.Upload, error) {
	body := stageUpdateBody{Fields: make(map[string]string)}

	form, err := c.MultipartForm()
	if err != nil {
		return body, nil, err
	}

	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		v := values[0]
		switch key {
		case formKeyChargeOption:
			opt, err := strconv.Atoi(v)
			if err != nil {
				return body, nil, err
			}
			body.ChargeOption = &opt
		case formKeyChargedEntityID:
			eid, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return body, nil, err
			}
			body.ChargedEntityID = &eid
		case formKeyMarkComplete:
			body.MarkComplete = v == "true" || v == "1"
		default:
			body.Fields[key] = v
		}
	}

	upload, err := readFormFile(c, formKeyAttachment)
	if err != nil {
		return body, nil, err
	}
	return body, upload, nil
}

// CancelCaseRequest is the cancellation payload; remarks are mandatory.
type CancelCaseRequest struct {
	CancellationCharge float64 `json:"cancellation_charge"`
	Remarks            string  `json:"remarks"`
}

// CancelCase handles POST /api/cases/:id/cancel.
func (h *Handlers) CancelCase(c *gin.Context) {
	id, ok := h.caseID(c)
	if !ok {
		return
	}

	var req CancelCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	cancelled, err := h.caseService.CancelCase(c.Request.Context(), id, req.CancellationCharge, req.Remarks)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCaseResponse(cancelled)})
}

// GetStageAttachment handles GET /api/cases/:id/attachments/:stage.
func (h *Handlers) GetStageAttachment(c *gin.Context) {
	id, ok := h.caseID(c)
	if !ok {
		return
	}
	stageNo, err := strconv.Atoi(c.Param("stage"))
	if err != nil || !residence.StageNumber(stageNo).IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid stage number"})
		return
	}

	rc, err := h.caseService.GetCase(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rec := rc.RecordIfExists(residence.StageNumber(stageNo))
	if rec == nil || rec.AttachmentRef == "" {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no attachment for stage"})
		return
	}

	path, err := h.attachments.Resolve(rec.AttachmentRef)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.File(path)
}

// GetCustodyTasks handles GET /api/custody?status=PENDING.
func (h *Handlers) GetCustodyTasks(c *gin.Context) {
	status, err := residence.ParseCustodyStatus(c.DefaultQuery("status", residence.CustodyPending.String()))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	cases, err := h.custodyService.GetCustodyTasks(c.Request.Context(), status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]*CaseResponse, 0, len(cases))
	for _, rc := range cases {
		out = append(out, toCaseResponse(rc))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// custodyUpdateBody is the JSON shape of a custody transition.
type custodyUpdateBody struct {
	TargetStatus string `json:"target_status"`
	CardNumber   string `json:"card_number"`
	CardExpiry   string `json:"card_expiry"`
	HolderName   string `json:"holder_name"`
	DateOfBirth  string `json:"date_of_birth"`
	Recipient    string `json:"recipient"`
	DeliveredAt  string `json:"delivered_at"`
}

// SubmitCustodyUpdate handles POST /api/custody/:id. Card images may be
// supplied as multipart parts front_image and back_image.
func (h *Handlers) SubmitCustodyUpdate(c *gin.Context) {
	id, ok := h.caseID(c)
	if !ok {
		return
	}

	var body custodyUpdateBody
	var front, back *service.Upload
	var err error
	if isMultipart(c) {
		body, front, back, err = h.parseMultipartCustodyUpdate(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	} else if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	target, err := residence.ParseCustodyStatus(body.TargetStatus)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	req := service.SubmitCustodyRequest{
		Target:      target,
		CardNumber:  body.CardNumber,
		CardExpiry:  body.CardExpiry,
		HolderName:  body.HolderName,
		DateOfBirth: body.DateOfBirth,
		Recipient:   body.Recipient,
		FrontImage:  front,
		BackImage:   back,
	}
	if body.DeliveredAt != "" {
		t, err := time.Parse(time.RFC3339, body.DeliveredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "delivered_at must be RFC3339"})
			return
		}
		req.DeliveredAt = &t
	}

	updated, err := h.custodyService.SubmitCustodyUpdate(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCaseResponse(updated)})
}

func (h *Handlers) parseMultipartCustodyUpdate(c *gin.Context) (custodyUpdateBody, *service.Upload, *service.Upload, error) {
	var body custodyUpdateBody

	form, err := c.MultipartForm()
	if err != nil {
		return body, nil, nil, err
	}

	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	body.TargetStatus = value("target_status")
	body.CardNumber = value("card_number")
	body.CardExpiry = value("card_expiry")
	body.HolderName = value("holder_name")
	body.DateOfBirth = value("date_of_birth")
	body.Recipient = value("recipient")
	body.DeliveredAt = value("delivered_at")

	front, err := readFormFile(c, "front_image")
	if err != nil {
		return body, nil, nil, err
	}
	back, err := readFormFile(c, "back_image")
	if err != nil {
		return body, nil, nil, err
	}
	return body, front, back, nil
}

// ExportCaseRegister handles GET /api/reports/cases.xlsx.
func (h *Handlers) ExportCaseRegister(c *gin.Context) {
	content, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cases.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handlers) caseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid case id"})
		return 0, false
	}
	return id, true
}

// writeError maps service and transition errors onto status codes. Gating
// violations are conflicts; completeness violations are unprocessable and
// name the offending field where known.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var terr *residence.TransitionError
	if errors.As(err, &terr) {
		status := http.StatusUnprocessableEntity
		switch terr.Code {
		case residence.ErrCodeCaseTerminal,
			residence.ErrCodeCaseOnHold,
			residence.ErrCodePriorStageIncomplete:
			status = http.StatusConflict
		}
		c.JSON(status, Response{
			Success: false,
			Error:   terr.Error(),
			Code:    string(terr.Code),
			Field:   string(terr.Field),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrCaseNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrRemarksRequired):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

func readFormFile(c *gin.Context, key string) (*service.Upload, error) {
	fh, err := c.FormFile(key)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &service.Upload{Filename: fh.Filename, Content: content}, nil
}
