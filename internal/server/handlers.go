package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"tinydoc/internal/record"
	"tinydoc/internal/shared"
)

type API struct {
	Stores    []Store
	APIKey    string
	Validator *Validator
	Limiter   *rate.Limiter // nil disables rate limiting
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail any) {
	writeJSON(w, code, shared.ErrorResponse{Detail: detail})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 2<<20))
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shared.HealthResponse{Status: "ok"})
}

// AdminSecret is only reachable through RequireAPIKey.
func (a *API) AdminSecret(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shared.AdminResponse{Ok: true, Msg: "Welcome, admin."})
}

// collection serves the CRUD routes of one store.
type collection struct {
	store     Store
	schema    record.Schema
	validator *Validator
}

func toOut(rec record.Record) shared.RecordOut {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return shared.RecordOut{ID: rec.ID, Name: rec.Name, Price: rec.Price, Tags: tags}
}

func (c *collection) list(w http.ResponseWriter, r *http.Request) {
	recs, err := c.store.List(r.Context())
	if err != nil {
		c.storeError(w, r, err)
		return
	}
	out := make([]shared.RecordOut, len(recs))
	for i, rec := range recs {
		out[i] = toOut(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *collection) get(w http.ResponseWriter, r *http.Request) {
	id, ok := c.pathID(w, r)
	if !ok {
		return
	}
	rec, err := c.store.Get(r.Context(), id)
	if err != nil {
		c.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOut(rec))
}

func (c *collection) create(w http.ResponseWriter, r *http.Request) {
	in, ok := c.input(w, r)
	if !ok {
		return
	}
	rec, err := c.store.Create(r.Context(), in)
	if err != nil {
		c.storeError(w, r, err)
		return
	}
	log.Info(r.Context(), log.KV{K: "msg", V: "record created"}, log.KV{K: "collection", V: c.schema.Name}, log.KV{K: "id", V: rec.ID})
	writeJSON(w, http.StatusCreated, toOut(rec))
}

func (c *collection) update(w http.ResponseWriter, r *http.Request) {
	id, ok := c.pathID(w, r)
	if !ok {
		return
	}
	in, ok := c.input(w, r)
	if !ok {
		return
	}
	rec, err := c.store.Update(r.Context(), id, in)
	if err != nil {
		c.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOut(rec))
}

func (c *collection) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := c.pathID(w, r)
	if !ok {
		return
	}
	if err := c.store.Delete(r.Context(), id); err != nil {
		c.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *collection) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue(c.schema.IDParam)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []shared.Problem{{
			Loc:  []string{"path", c.schema.IDParam},
			Msg:  "Input should be a valid integer, unable to parse string as an integer",
			Type: "int_parsing",
		}})
		return 0, false
	}
	return id, true
}

func (c *collection) input(w http.ResponseWriter, r *http.Request) (record.Fields, bool) {
	body, err := readBody(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return record.Fields{}, false
	}
	in, err := c.validator.DecodeInput(body)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			writeDetail(w, http.StatusUnprocessableEntity, ve.Problems)
			return record.Fields{}, false
		}
		log.Error(r.Context(), err, log.KV{K: "msg", V: "validate input"})
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return record.Fields{}, false
	}
	return record.Fields{Name: in.Name, Price: in.Price, Tags: in.Tags}, true
}

func (c *collection) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, record.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, c.schema.NotFoundDetail())
		return
	}
	log.Error(r.Context(), err, log.KV{K: "msg", V: "store failure"}, log.KV{K: "collection", V: c.schema.Name})
	writeDetail(w, http.StatusInternalServerError, "internal error")
}
