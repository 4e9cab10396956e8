package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/usecase"
	"github.com/inkfold/writerstudio/pkg/utils/errutil"
	"github.com/inkfold/writerstudio/pkg/utils/safe"
)

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

// handleError maps persistence not-found sentinels to 404 and everything
// else to 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrNotFound) {
		status = http.StatusNotFound
	}
	errutil.HandleHTTP(r.Context(), w, err, status)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid id", goerr.V("id", raw))
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type evaluateRequest struct {
	ChapterText    string `json:"chapter_text"`
	Model          string `json:"model"`
	Provider       string `json:"provider"`
	AnswerLanguage string `json:"answer_language"`
	MaxMessages    int    `json:"max_messages"`
	ReturnMessages bool   `json:"return_messages"`
	Persist        *bool  `json:"persist"`
}

type evaluateResponse struct {
	ID        int64           `json:"id,omitempty"`
	FinalText string          `json:"final_text"`
	FinalJSON map[string]any  `json:"final_json,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
}

func evaluateHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if req.ChapterText == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("chapter_text is required"), http.StatusBadRequest)
			return
		}

		persist := true
		if req.Persist != nil {
			persist = *req.Persist
		}

		out, err := uc.Evaluate.Run(r.Context(), usecase.EvaluateInput{
			ChapterText: req.ChapterText,
			Model:       req.Model,
			Provider:    types.ParseProvider(req.Provider),
			Lang:        req.AnswerLanguage,
			MaxMessages: req.MaxMessages,
			Persist:     persist,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := evaluateResponse{
			ID:        out.ID,
			FinalText: out.FinalText,
			FinalJSON: out.FinalJSON,
		}
		if req.ReturnMessages {
			resp.Messages = out.Transcript
		}
		respondJSON(w, r, http.StatusOK, resp)
	}
}

func getEvaluationHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		record, err := uc.Evaluations().Get(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, record)
	}
}

func searchEvaluationsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("q is required"), http.StatusBadRequest)
			return
		}
		results, err := uc.Evaluations().Search(r.Context(), q, queryInt(r, "top_k", 5))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"results": results})
	}
}

func listProfilesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := uc.Character.ListProfiles(r.Context(),
			r.URL.Query().Get("language"),
			queryInt(r, "limit", 100),
		)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"profiles": items})
	}
}

type createProfileRequest struct {
	Language string         `json:"language"`
	Name     string         `json:"name"`
	Profile  model.Document `json:"profile"`
}

func createProfileHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		id, err := uc.Character.SaveProfile(r.Context(), req.Language, req.Name, req.Profile)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]int64{"id": id})
	}
}

func getProfileHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		profile, err := uc.Character.GetProfile(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, profile)
	}
}

func getProfileByNameHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("language")
		name := r.URL.Query().Get("name")
		if lang == "" || name == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("language and name are required"), http.StatusBadRequest)
			return
		}
		profile, err := uc.Character.GetProfileByName(r.Context(), lang, name)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, profile)
	}
}

func characterQuery(r *http.Request) model.CharacterQuery {
	q := r.URL.Query()
	return model.CharacterQuery{
		Lang:      q.Get("language"),
		NameLike:  q.Get("name_like"),
		Text:      q.Get("q"),
		Field:     q.Get("field"),
		ValueLike: q.Get("value"),
		Limit:     queryInt(r, "limit", 50),
	}
}

func searchProfilesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := uc.Character.SearchProfiles(r.Context(), characterQuery(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"profiles": items})
	}
}

type updateProfileRequest struct {
	Profile  model.Document `json:"profile"`
	Name     string         `json:"name"`
	Language string         `json:"language"`
}

func updateProfileHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		updated, err := uc.Character.UpdateProfile(r.Context(), id, req.Profile, req.Name, req.Language)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]bool{"updated": updated})
	}
}

func listTemplatesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := uc.Character.ListTemplates(r.Context(),
			r.URL.Query().Get("language"),
			queryInt(r, "limit", 100),
		)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"templates": items})
	}
}

type createTemplateRequest struct {
	Language string         `json:"language"`
	Name     string         `json:"name"`
	Source   string         `json:"source"`
	Template model.Document `json:"template"`
}

func createTemplateHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		id, err := uc.Character.SaveTemplate(r.Context(), req.Language, req.Name, req.Source, req.Template)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]int64{"id": id})
	}
}

func getTemplateHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		tmpl, err := uc.Character.GetTemplate(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, tmpl)
	}
}

func searchTemplatesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := uc.Character.SearchTemplates(r.Context(), characterQuery(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"templates": items})
	}
}

type useTemplateRequest struct {
	Name          string `json:"name"`
	Language      string `json:"language"`
	Backstory     any    `json:"backstory"`
	Relationships any    `json:"relationships"`
}

func useTemplateHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		var req useTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("name is required"), http.StatusBadRequest)
			return
		}
		profile, err := uc.Character.InstantiateFromTemplate(r.Context(), id, req.Name, usecase.InstantiateOverrides{
			Lang:          req.Language,
			Backstory:     req.Backstory,
			Relationships: req.Relationships,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, profile)
	}
}
