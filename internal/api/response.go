package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eventfeed/internal/feed"
	"eventfeed/internal/model"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type eventResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	Region      string     `json:"region,omitempty"`
	Type        string     `json:"type"`
	StartDate   string     `json:"start_date,omitempty"`
	StartTime   string     `json:"start_time,omitempty"`
	EndDate     string     `json:"end_date,omitempty"`
	EndTime     string     `json:"end_time,omitempty"`
	Payment     string     `json:"payment,omitempty"`
	Document    string     `json:"document,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type criteriaBody struct {
	Region   string `json:"region"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Payment  string `json:"payment"`
	Document string `json:"document"`
	Query    string `json:"query"`
	Sort     string `json:"sort"`
}

type pageResponse struct {
	SessionID string          `json:"session_id"`
	Feed      string          `json:"feed"`
	Events    []eventResponse `json:"events"`
	Upcoming  []eventResponse `json:"upcoming,omitempty"`
	Total     int             `json:"total"`
	HasMore   bool            `json:"has_more"`
	Loading   bool            `json:"loading"`
	Empty     bool            `json:"empty"`
	Error     string          `json:"error,omitempty"`
	Criteria  criteriaBody    `json:"criteria"`
}

func toEventResponses(events []model.EventRecord) []eventResponse {
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = eventResponse{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Region:      e.Region,
			Type:        string(e.Type),
			StartDate:   e.StartDate,
			StartTime:   e.StartTime,
			EndDate:     e.EndDate,
			EndTime:     e.EndTime,
			Payment:     string(e.Payment),
			Document:    string(e.Document),
			OwnerID:     e.OwnerID,
			CreatedAt:   e.CreatedAt,
		}
	}
	return out
}

func toCriteriaBody(c model.FilterCriteria) criteriaBody {
	return criteriaBody{
		Region:   c.Region,
		Category: c.Category,
		Type:     c.Type,
		Payment:  c.Payment,
		Document: c.Document,
		Query:    c.Query,
		Sort:     string(c.Sort),
	}
}

func toPageResponse(sessionID string, p feed.Page) pageResponse {
	resp := pageResponse{
		SessionID: sessionID,
		Feed:      string(p.Kind),
		Events:    toEventResponses(p.Events),
		Total:     p.Total,
		HasMore:   p.HasMore,
		Loading:   p.Loading,
		Empty:     p.Empty,
		Criteria:  toCriteriaBody(p.Criteria),
	}
	if len(p.Upcoming) > 0 {
		resp.Upcoming = toEventResponses(p.Upcoming)
	}
	resp.Error = userMessage(p.Err)
	return resp
}

// userMessage hides causes behind a FeedError's consumer message.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *model.FeedError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}
