package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/jobs"
	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/store"
	"github.com/rezonia/einvoice-engine/internal/validate"
)

// Config holds server configuration
type Config struct {
	Address      string
	APIKey       string
	LLMBaseURL   string
	LLMModel     string
	StorePath    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	Logger       *zap.Logger
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	factory   *generator.Factory
	pipeline  *extraction.Pipeline
	processor *jobs.Processor
	store     *store.Store
	logger    *zap.Logger
}

// NewServer creates a new API server. Extraction endpoints are enabled only
// when an API key is configured; everything else works without one.
func NewServer(config *Config) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:  config,
		router:  router,
		factory: generator.NewFactory(),
		logger:  logger,
	}

	if config.StorePath != "" {
		st, err := store.Open(config.StorePath)
		if err != nil {
			return nil, err
		}
		s.store = st
	}

	if config.APIKey != "" {
		var opts []extraction.ExtractorOption
		if config.LLMBaseURL != "" {
			opts = append(opts, extraction.WithBaseURL(config.LLMBaseURL))
		}
		if config.LLMModel != "" {
			opts = append(opts, extraction.WithModel(config.LLMModel))
		}
		extractor := extraction.NewOpenAIExtractor(config.APIKey, opts...)
		s.pipeline = extraction.NewPipeline(extractor, extraction.WithLogger(logger))

		procOpts := []jobs.ProcessorOption{jobs.WithProcessorLogger(logger)}
		if s.store != nil {
			procOpts = append(procOpts, jobs.WithStore(s.store))
		}
		s.processor = jobs.NewProcessor(s.pipeline, s.factory, procOpts...)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/formats", s.handleFormats)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/generate", s.handleGenerate)
		v1.POST("/convert", s.handleConvert)
		v1.POST("/process", s.handleProcess)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleFormats(c *gin.Context) {
	c.JSON(http.StatusOK, FormatsResponse{Formats: s.factory.AvailableFormats()})
}

func (s *Server) handleValidate(c *gin.Context) {
	var inv model.CanonicalInvoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid invoice JSON", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, validate.Validate(&inv))
}

func (s *Server) handleGenerate(c *gin.Context) {
	format := model.OutputFormat(c.Query("format"))
	if format == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing format query parameter"})
		return
	}

	var inv model.CanonicalInvoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid invoice JSON", Details: err.Error()})
		return
	}

	output, err := s.generate(format, &inv)
	if err != nil {
		s.writeGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Format:     format,
		XMLContent: output.XMLContent,
		PDFContent: output.PDFContent,
	})
}

func (s *Server) handleConvert(c *gin.Context) {
	format := model.OutputFormat(c.Query("format"))
	if format == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing format query parameter"})
		return
	}

	var raw model.RawExtraction
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid extraction JSON", Details: err.Error()})
		return
	}

	inv := extraction.Normalize(raw, s.logger)
	validation := validate.Validate(inv)

	response := ConvertResponse{
		Invoice:    inv,
		Validation: validation,
		Format:     format,
	}

	if !validation.Valid {
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}

	output, err := s.generate(format, inv)
	if err != nil {
		s.writeGenerateError(c, err)
		return
	}

	response.XMLContent = output.XMLContent
	response.PDFContent = output.PDFContent
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleProcess(c *gin.Context) {
	if s.processor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "extraction unavailable",
			Details: "no AI provider API key configured",
		})
		return
	}

	format := model.OutputFormat(c.Query("format"))
	if format == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing format query parameter"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	mimeType := c.GetHeader("Content-Type")
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	job := jobs.NewJob(c.Query("filename"), body, mimeType, format)
	result, err := s.processor.Run(ctx, job)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) && result != nil {
			c.JSON(http.StatusUnprocessableEntity, ProcessResponse{
				Invoice:    result.Outcome.Invoice,
				Validation: result.Outcome.Validation,
				Confidence: result.Outcome.Confidence,
				Attempts:   result.Outcome.Attempts,
				Format:     format,
			})
			return
		}
		s.writeGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Invoice:    result.Outcome.Invoice,
		Validation: result.Outcome.Validation,
		Confidence: result.Outcome.Confidence,
		Attempts:   result.Outcome.Attempts,
		Format:     format,
		XMLContent: result.Output.XMLContent,
		PDFContent: result.Output.PDFContent,
	})
}

func (s *Server) generate(format model.OutputFormat, inv *model.CanonicalInvoice) (*generator.Output, error) {
	gen, err := s.factory.Create(format)
	if err != nil {
		return nil, err
	}
	return gen.Generate(inv)
}

// writeGenerateError maps generation failures onto HTTP statuses: an unknown
// format is a caller mistake, a schema gap is unprocessable input, anything
// else is internal.
func (s *Server) writeGenerateError(c *gin.Context, err error) {
	var unknownErr *model.UnknownFormatError
	if errors.As(err, &unknownErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var schemaErr *model.GeneratorSchemaError
	if errors.As(err, &schemaErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Error("generation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "generation failed", Details: err.Error()})
}
