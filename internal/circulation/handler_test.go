package circulation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"librarydesk/internal/auth"
)

func newTestRouter(t *testing.T, f *fixture, caller *auth.Identity) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	if caller != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), *caller)))
			})
		})
	}
	r.Route("/transactions", NewHandler(f.svc, zaptest.NewLogger(t)).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandlerCheckoutAndReturn(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(1)
	h := newTestRouter(t, f, &auth.Identity{UserID: f.alice, Role: auth.RoleMember})

	rec, body := do(t, h, http.MethodPost, "/transactions/checkout/"+book.String())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, book.String(), body["book"])
	assert.Equal(t, f.alice.String(), body["user"])
	assert.Contains(t, body, "return_date")
	assert.Nil(t, body["return_date"])
	txnID := body["id"].(string)

	rec, body = do(t, h, http.MethodPost, "/transactions/checkout/"+book.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No copies available.", body["detail"])

	f.clock.Advance(20 * 24 * time.Hour)
	rec, body = do(t, h, http.MethodPost, "/transactions/"+txnID+"/return")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"detail": "Book returned successfully."}, body)

	rec, body = do(t, h, http.MethodPost, "/transactions/"+txnID+"/return")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found.", body["detail"])
}

func TestHandlerCheckoutErrors(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(t, f, &auth.Identity{UserID: f.alice, Role: auth.RoleMember})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown book", "/transactions/checkout/" + uuid.NewString(), http.StatusNotFound},
		{"malformed book id", "/transactions/checkout/42", http.StatusNotFound},
		{"malformed transaction id", "/transactions/abc/return", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodPost, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandlerListings(t *testing.T) {
	f := newFixture(t)
	ctxUser := &auth.Identity{UserID: f.alice, Role: auth.RoleMember}
	h := newTestRouter(t, f, ctxUser)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodPost, "/transactions/checkout/"+f.addBook(1).String())
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, _ := do(t, h, http.MethodGet, "/transactions/")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec, _ = do(t, h, http.MethodGet, "/transactions/overdue")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.clock.Advance(15 * 24 * time.Hour)
	rec, _ = do(t, h, http.MethodGet, "/transactions/overdue")
	require.Equal(t, http.StatusOK, rec.Code)
	var overdue []Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overdue))
	assert.Len(t, overdue, 2)

	rec, _ = do(t, h, http.MethodGet, "/transactions/"+all[0].ID.String()+"/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, EventTransactionOpened, history[0]["event_type"])
}

func TestHandlerRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(t, f, nil)

	rec, body := do(t, h, http.MethodGet, "/transactions/")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgNotAuthenticated, body["detail"])
}
