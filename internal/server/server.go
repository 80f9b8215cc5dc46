package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/iwvelando/adaptive-trial/internal/config"
	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"github.com/iwvelando/adaptive-trial/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger               *zap.Logger
	maxUploadSize        int64
	maxReplications      int
	maxTotalReplications int
	version              string
}

// NewHandler constructs the HTTP handler that serves the simulation API.
func NewHandler(logger *zap.Logger, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	maxReplications := cfg.MaxReplications
	if maxReplications <= 0 {
		maxReplications = constants.DefaultMaxReplications
	}
	maxTotalReplications := cfg.MaxTotalReplications
	if maxTotalReplications <= 0 {
		maxTotalReplications = constants.DefaultMaxTotalReplications
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:               logger,
		maxUploadSize:        maxUploadSize,
		maxReplications:      maxReplications,
		maxTotalReplications: maxTotalReplications,
		version:              trimmedVersion,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Simulation API endpoint (file upload)
	r.Post("/api/simulate", h.handleSimulate)

	// Simulation API endpoint for editor-driven updates
	r.Post("/api/editor/simulate", h.handleSimulateEditor)

	// Config serialization endpoint for editor downloads
	r.Post("/api/editor/export", h.handleConfigExport)

	// HTML report (file upload)
	r.Post("/api/report", h.handleReport)

	r.Get("/api/version", h.handleVersion)

	return r
}

type simulateResponse struct {
	RunID      string                 `json:"runId"`
	Scenarios  []string               `json:"scenarios"`
	Results    []trial.ScenarioResult `json:"results"`
	CSV        string                 `json:"csv"`
	Markdown   string                 `json:"markdown"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config,omitempty"`
	ConfigYAML string                 `json:"configYaml,omitempty"`
}

// requestError carries the HTTP status a failure should be reported with.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	start := time.Now()

	configBytes, err := h.readUpload(w, r)
	if err != nil {
		h.respondRequestError(w, r, err, op)
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	h.runSimulation(w, r, configBytes, configMap, start, op)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleSimulateEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulateEditor"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, "invalid config payload: expected object", op)
			return
		}
		configPayload = cfgMap
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse configuration: %v", err), op)
		return
	}

	h.runSimulation(w, r, configBytes, configMap, start, op)
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleReport renders the report as HTML, or as a workbook with ?format=xlsx.
func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReport"

	configBytes, err := h.readUpload(w, r)
	if err != nil {
		h.respondRequestError(w, r, err, op)
		return
	}

	report, _, err := h.simulate(r, configBytes)
	if err != nil {
		h.respondRequestError(w, r, err, op)
		return
	}

	if r.URL.Query().Get("format") == constants.OutputFormatXLSX {
		var buf bytes.Buffer
		if err := output.WriteXLSX(&buf, report); err != nil {
			h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to build workbook: %v", err), op)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="adaptive-trial-report.xlsx"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Error("failed to write workbook", zap.String("op", op), zap.Error(err))
		}
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	html := markdown.ToHTML([]byte(output.MarkdownString(report)), p, nil)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(html); err != nil {
		h.logger.Error("failed to write HTML report", zap.String("op", op), zap.Error(err))
	}
}

// readUpload returns the bytes of the multipart "file" field.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, &requestError{
				status: http.StatusRequestEntityTooLarge,
				msg:    fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize),
			}
		}
		return nil, badRequest("failed to parse upload: %v", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest("missing configuration file")
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.readUpload"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, msg: fmt.Sprintf("failed to read configuration: %v", err)}
	}
	return buf.Bytes(), nil
}

// simulate loads, validates and runs the uploaded configuration.
func (h *handler) simulate(r *http.Request, configBytes []byte) (*trial.Report, []string, error) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		return nil, nil, badRequest("%s", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, badRequest("%s", err.Error())
	}
	if cfg.Simulation.Replications > h.maxReplications {
		return nil, nil, badRequest("replications %d exceed the server limit of %d", cfg.Simulation.Replications, h.maxReplications)
	}
	scenarios := cfg.ActiveScenarios()
	// Compare by division so a huge sweep cannot overflow the product
	if len(scenarios) > h.maxTotalReplications/cfg.Simulation.Replications {
		return nil, nil, badRequest("%d scenarios x %d replications exceed the server limit of %d total replications",
			len(scenarios), cfg.Simulation.Replications, h.maxTotalReplications)
	}

	warnings := cfg.ValidateConfiguration()

	runner := trial.NewRunner(h.logger, trial.Options{
		Seed:    cfg.Simulation.Seed,
		Workers: serverWorkers(cfg.Simulation.Workers),
	})
	report, err := runner.Run(r.Context(), cfg.TrialDesign(), scenarios, cfg.Simulation.Replications)
	if err != nil {
		if errors.Is(err, trial.ErrInvalidConfig) {
			return nil, nil, badRequest("%s", err.Error())
		}
		return nil, nil, &requestError{status: http.StatusInternalServerError, msg: fmt.Sprintf("failed to run simulation: %v", err)}
	}
	return report, warnings, nil
}

// serverWorkers clamps a client-requested worker count to the CPUs available.
func serverWorkers(requested int) int {
	limit := runtime.GOMAXPROCS(0)
	if requested < 1 || requested > limit {
		return limit
	}
	return requested
}

func (h *handler) runSimulation(w http.ResponseWriter, r *http.Request, configBytes []byte, configMap map[string]interface{}, start time.Time, op string) {
	report, warnings, err := h.simulate(r, configBytes)
	if err != nil {
		h.respondRequestError(w, r, err, op)
		return
	}

	elapsed := time.Since(start)

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	response := simulateResponse{
		RunID:      report.RunID,
		Scenarios:  extractScenarioNames(report.Results),
		Results:    report.Results,
		CSV:        output.CsvString(report),
		Markdown:   output.MarkdownString(report),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}

	h.logger.Info("simulation computed",
		zap.String("op", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("run_id", report.RunID),
		zap.Int("scenarios", len(response.Scenarios)),
		zap.Int("replications", report.Replications),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range []string{"design", "simulation", "scenarios", "sweep", "logging", "output"} {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondRequestError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		h.respondErrorWithOp(w, r, reqErr.status, reqErr.msg, op)
		return
	}
	h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("simulation request failed",
		zap.String("op", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func extractScenarioNames(results []trial.ScenarioResult) []string {
	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.Scenario.Name)
	}
	return names
}
