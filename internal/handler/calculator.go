package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/centsibleapp/centsible/internal/calceval"
	"github.com/centsibleapp/centsible/internal/events"
	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/store"
)

type CalculatorHandler struct {
	calculatorStore *store.CalculatorStore
	feed            *events.Feed
	logger          *slog.Logger
}

func NewCalculatorHandler(cs *store.CalculatorStore, feed *events.Feed, logger *slog.Logger) *CalculatorHandler {
	return &CalculatorHandler{calculatorStore: cs, feed: feed, logger: logger}
}

func (h *CalculatorHandler) publish(action string, id int64) {
	if h.feed != nil {
		h.feed.Publish(events.ContentChanged("calculator", action, id))
	}
}

// calculatorRequest uses pointer fields so updates carry patch semantics.
type calculatorRequest struct {
	Name           *string                 `json:"name"`
	Description    *string                 `json:"description"`
	Category       *string                 `json:"category"`
	CalculatorType *string                 `json:"calculatorType"`
	Code           *string                 `json:"code"`
	Content        *string                 `json:"content"`
	URL            *string                 `json:"url"`
	Icon           *string                 `json:"icon"`
	Color          *string                 `json:"color"`
	Fields         []model.CalculatorField `json:"fields"`
	IsActive       *bool                   `json:"isActive"`
	IsPublished    *bool                   `json:"isPublished"`
	OrderIndex     *int                    `json:"orderIndex"`
	FileName       *string                 `json:"fileName"`
	ArtifactURL    *string                 `json:"artifactUrl"`
}

// validateType checks the calculatorType discriminator: "code" calculators
// need a parseable formula, "url" calculators need a URL.
func validateType(calcType string, code, url *string) string {
	switch calcType {
	case model.CalculatorTypeCode:
		if code == nil || strings.TrimSpace(*code) == "" {
			return "code is required when calculatorType is \"code\""
		}
		if _, err := calceval.Parse(*code); err != nil {
			return "invalid formula: " + err.Error()
		}
	case model.CalculatorTypeURL:
		if url == nil || strings.TrimSpace(*url) == "" {
			return "url is required when calculatorType is \"url\""
		}
	default:
		return "calculatorType must be \"url\" or \"code\""
	}
	return ""
}

func (h *CalculatorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req calculatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := strings.TrimSpace(strOr(req.Name, ""))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	calcType := strOr(req.CalculatorType, model.CalculatorTypeURL)
	if msg := validateType(calcType, req.Code, req.URL); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	calculator, err := h.calculatorStore.Create(store.NewCalculator{
		Name:           name,
		Description:    strOr(req.Description, ""),
		Category:       strOr(req.Category, "general"),
		CalculatorType: calcType,
		Code:           req.Code,
		Content:        req.Content,
		URL:            req.URL,
		Icon:           strOr(req.Icon, ""),
		Color:          strOr(req.Color, ""),
		Fields:         req.Fields,
		IsActive:       boolOr(req.IsActive, true),
		IsPublished:    boolOr(req.IsPublished, false),
		OrderIndex:     intOr(req.OrderIndex, 0),
		FileName:       req.FileName,
		ArtifactURL:    req.ArtifactURL,
	})
	if err != nil {
		h.logger.Error("create calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create calculator")
		return
	}

	h.publish("created", calculator.ID)
	writeJSON(w, http.StatusCreated, calculator)
}

// List returns calculators ordered by orderIndex then creation time.
// `?public=true` filters to active, published calculators.
func (h *CalculatorHandler) List(w http.ResponseWriter, r *http.Request) {
	publicOnly := r.URL.Query().Get("public") == "true"

	calculators, err := h.calculatorStore.List(publicOnly)
	if err != nil {
		h.logger.Error("list calculators", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calculators")
		return
	}
	if calculators == nil {
		calculators = []model.Calculator{}
	}
	writeJSON(w, http.StatusOK, calculators)
}

func (h *CalculatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	calculator, err := h.calculatorStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get calculator")
		return
	}
	if calculator == nil {
		writeError(w, http.StatusNotFound, "calculator not found")
		return
	}
	writeJSON(w, http.StatusOK, calculator)
}

func (h *CalculatorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.calculatorStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get calculator")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "calculator not found")
		return
	}

	var req calculatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Validate the discriminator against the post-merge state.
	calcType := existing.CalculatorType
	if req.CalculatorType != nil {
		calcType = *req.CalculatorType
	}
	code := existing.Code
	if req.Code != nil {
		code = req.Code
	}
	url := existing.URL
	if req.URL != nil {
		url = req.URL
	}
	if msg := validateType(calcType, code, url); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	calculator, err := h.calculatorStore.Update(id, store.CalculatorPatch{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		CalculatorType: req.CalculatorType,
		Code:           req.Code,
		Content:        req.Content,
		URL:            req.URL,
		Icon:           req.Icon,
		Color:          req.Color,
		Fields:         req.Fields,
		IsActive:       req.IsActive,
		IsPublished:    req.IsPublished,
		OrderIndex:     req.OrderIndex,
		FileName:       req.FileName,
		ArtifactURL:    req.ArtifactURL,
	})
	if err != nil {
		h.logger.Error("update calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update calculator")
		return
	}
	if calculator == nil {
		writeError(w, http.StatusNotFound, "calculator not found")
		return
	}

	h.publish("updated", calculator.ID)
	writeJSON(w, http.StatusOK, calculator)
}

func (h *CalculatorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.calculatorStore.Delete(id)
	if err != nil {
		h.logger.Error("delete calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete calculator")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "calculator not found")
		return
	}

	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type analyzeRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
	URL  string `json:"url"`
}

// Analyze infers calculator metadata from pasted formula code or a URL so
// admins do not have to describe the input contract by hand.
func (h *CalculatorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if strings.TrimSpace(req.Code) == "" && strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "code or url is required")
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":           req.Name,
			"calculatorType": model.CalculatorTypeURL,
			"url":            req.URL,
			"fields":         []model.CalculatorField{},
		})
		return
	}

	expr, err := calceval.Parse(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid formula: "+err.Error())
		return
	}

	vars := expr.Variables()
	fields := make([]model.CalculatorField, 0, len(vars))
	for _, v := range vars {
		fields = append(fields, model.CalculatorField{
			Name:     v,
			Label:    fieldLabel(v),
			Type:     "number",
			Required: true,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":           req.Name,
		"calculatorType": model.CalculatorTypeCode,
		"code":           req.Code,
		"fields":         fields,
	})
}

// fieldLabel turns an identifier like "monthly_income" into "Monthly Income".
// Identifiers may contain any letter, so capitalization works on runes.
func fieldLabel(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

type evaluateRequest struct {
	Inputs map[string]float64 `json:"inputs"`
}

// Evaluate runs a "code" calculator's formula against submitted inputs.
// Only active, published calculators are evaluable by the public.
func (h *CalculatorHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	calculator, err := h.calculatorStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calculator", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get calculator")
		return
	}
	if calculator == nil || !calculator.IsActive || !calculator.IsPublished {
		writeError(w, http.StatusNotFound, "calculator not found")
		return
	}
	if calculator.CalculatorType != model.CalculatorTypeCode || calculator.Code == nil {
		writeError(w, http.StatusBadRequest, "calculator is not evaluable")
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Inputs == nil {
		req.Inputs = map[string]float64{}
	}

	for _, f := range calculator.Fields {
		if !f.Required {
			continue
		}
		if _, ok := req.Inputs[f.Name]; !ok {
			writeError(w, http.StatusBadRequest, "missing required input: "+f.Name)
			return
		}
	}

	expr, err := calceval.Parse(*calculator.Code)
	if err != nil {
		h.logger.Error("stored formula does not parse", "error", err, "calculator", id)
		writeError(w, http.StatusInternalServerError, "calculator formula is invalid")
		return
	}

	result, err := expr.Evaluate(req.Inputs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
