package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Catalysis-Ingest/internal/application/ingest"
	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/storage/minio"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

const defaultMaxUploadBytes = 64 << 20

// IngestHandler exposes the ingestion service over HTTP.
type IngestHandler struct {
	svc            ingest.Service
	logger         logging.Logger
	maxUploadBytes int64
}

// NewIngestHandler creates a handler.  maxUploadBytes <= 0 selects 64 MiB.
func NewIngestHandler(svc ingest.Service, logger logging.Logger, maxUploadBytes int64) *IngestHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &IngestHandler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

// IngestRequest ingests a file already in object storage.
type IngestRequest struct {
	Source        string               `json:"source" binding:"required"`
	ReactionName  string               `json:"reaction_name,omitempty"`
	ReactionClass string               `json:"reaction_class,omitempty"`
	Samples       []reaction.SampleRef `json:"samples,omitempty"`
}

// BatchRequest ingests several stored files.
type BatchRequest struct {
	Items []IngestRequest `json:"items" binding:"required"`
}

// BatchItemResponse is the outcome of one batch item.
type BatchItemResponse struct {
	Source string               `json:"source"`
	Result *ingest.IngestResult `json:"result,omitempty"`
	Error  *ErrorResponse       `json:"error,omitempty"`
}

// Ingest handles POST /api/v1/ingest.  A multipart body uploads the file in
// the "file" field; a JSON body names an s3:// source.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var (
		input *ingest.IngestInput
		err   error
	)
	if c.ContentType() == "multipart/form-data" {
		input, err = h.bindUpload(c)
	} else {
		var req IngestRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			writeAppError(c, errors.InvalidParam("invalid request body").WithDetail(bindErr.Error()))
			return
		}
		input, err = inputFromRequest(req)
	}
	if err != nil {
		writeAppError(c, err)
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), input)
	if err != nil {
		h.logger.Warn("ingest request failed", logging.String("source", input.Source), logging.Err(err))
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// IngestBatch handles POST /api/v1/ingest/batch.
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAppError(c, errors.InvalidParam("invalid request body").WithDetail(err.Error()))
		return
	}
	if len(req.Items) == 0 {
		writeAppError(c, errors.NewValidationError("items", "at least one item is required"))
		return
	}

	inputs := make([]*ingest.IngestInput, len(req.Items))
	for i, item := range req.Items {
		in, err := inputFromRequest(item)
		if err != nil {
			writeAppError(c, err)
			return
		}
		inputs[i] = in
	}

	items := h.svc.IngestAll(c.Request.Context(), inputs)
	resp := make([]BatchItemResponse, len(items))
	for i, item := range items {
		resp[i] = BatchItemResponse{Source: item.Input.Source, Result: item.Result}
		if item.Err != nil {
			code := errors.GetCode(item.Err)
			resp[i].Error = &ErrorResponse{Code: code.String(), Message: item.Err.Error()}
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// Get handles GET /api/v1/ingestions/:id.
func (h *IngestHandler) Get(c *gin.Context) {
	got, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, got)
}

// List handles GET /api/v1/ingestions.
func (h *IngestHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	res, err := h.svc.List(c.Request.Context(), &ingest.ListInput{Page: page, PageSize: pageSize})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *IngestHandler) bindUpload(c *gin.Context) (*ingest.IngestInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, errors.InvalidParam("multipart field \"file\" is required").WithDetail(err.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceRead, "failed to open upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceRead, "failed to read upload")
	}

	input := &ingest.IngestInput{
		Source:        fh.Filename,
		Data:          data,
		ReactionName:  c.PostForm("reaction_name"),
		ReactionClass: c.PostForm("reaction_class"),
	}
	if s := c.PostForm("source"); s != "" {
		input.Source = s
	}
	if lab, name := c.PostForm("lab_id"), c.PostForm("sample_name"); lab != "" || name != "" {
		input.Samples = []reaction.SampleRef{{LabID: lab, Name: name}}
	}
	return input, nil
}

// inputFromRequest only accepts object-storage sources; server-local paths
// are reserved for the CLI.
func inputFromRequest(req IngestRequest) (*ingest.IngestInput, error) {
	if !minio.IsObjectURI(req.Source) {
		return nil, errors.NewValidationError("source", "source must be an s3://bucket/key URI")
	}
	return &ingest.IngestInput{
		Source:        req.Source,
		ReactionName:  req.ReactionName,
		ReactionClass: req.ReactionClass,
		Samples:       req.Samples,
	}, nil
}

//Personal.AI order the ending
