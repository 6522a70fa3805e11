package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/interfaces/http/handlers"
	"torweather/internal/shared/config"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
	"torweather/internal/shared/services/markdown"
)

const testFingerprint = "4094803429B41070E43CBDBDD0B8B27CCCB7AAC3"

type stubSubscribe struct {
	resp *dto.SubscriberResponse
	err  error
	got  dto.SubscribeRequest
}

func (s *stubSubscribe) Execute(ctx context.Context, req dto.SubscribeRequest) (*dto.SubscriberResponse, error) {
	s.got = req
	return s.resp, s.err
}

// stubAuthExec serves the confirm, resend, unsubscribe, and
// get-preferences endpoints; they all execute on a single auth key.
type stubAuthExec struct {
	resp   *dto.SubscriberResponse
	err    error
	gotKey string
}

func (s *stubAuthExec) Execute(ctx context.Context, key string) (*dto.SubscriberResponse, error) {
	s.gotKey = key
	return s.resp, s.err
}

type stubUpdatePrefs struct {
	resp *dto.SubscriberResponse
	err  error
	got  dto.UpdatePreferencesRequest
}

func (s *stubUpdatePrefs) Execute(ctx context.Context, prefAuth string, req dto.UpdatePreferencesRequest) (*dto.SubscriberResponse, error) {
	s.got = req
	return s.resp, s.err
}

type stubs struct {
	subscribe   *stubSubscribe
	confirm     *stubAuthExec
	resend      *stubAuthExec
	unsubscribe *stubAuthExec
	getPrefs    *stubAuthExec
	updatePrefs *stubUpdatePrefs
	metrics     *observability.Metrics
}

func sampleResponse() *dto.SubscriberResponse {
	return &dto.SubscriberResponse{
		Email:             "watcher@example.org",
		RouterName:        "ExampleRelay (id: 4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3)",
		RouterFingerprint: "4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3",
		Confirmed:         true,
		ConfirmAuth:       "confirmkeyconfirmkeycon",
		UnsubsAuth:        "unsubkeyunsubkeyunsubke",
		PrefAuth:          "prefkeyprefkeyprefkeypr",
		Subscriptions: []dto.SubscriptionSettings{
			{Type: "node_down", GraceHours: 24},
			{Type: "bandwidth", ThresholdKBs: 20},
		},
	}
}

func newTestEngine(t *testing.T) (*gin.Engine, *stubs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := &stubs{
		subscribe:   &stubSubscribe{resp: sampleResponse()},
		confirm:     &stubAuthExec{resp: sampleResponse()},
		resend:      &stubAuthExec{resp: sampleResponse()},
		unsubscribe: &stubAuthExec{resp: sampleResponse()},
		getPrefs:    &stubAuthExec{resp: sampleResponse()},
		updatePrefs: &stubUpdatePrefs{resp: sampleResponse()},
		metrics:     observability.NewMetricsForTesting(),
	}
	log := logger.NewLogger()

	web, err := handlers.NewWebHandler(
		st.subscribe, st.confirm, st.resend, st.unsubscribe, st.getPrefs, st.updatePrefs,
		st.metrics, markdown.NewMarkdownService(), "# Notification types\n\nFour kinds of email.\n", log,
	)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	engine := NewRouter(Dependencies{
		Mode:          gin.TestMode,
		TemplatesGlob: "../../../templates/*.html",
		Web:           web,
		Health:        handlers.NewHealthHandler(db, log),
		RateLimit:     &config.RateLimitConfig{},
		Logger:        log,
	})
	return engine, st
}

func doRequest(engine *gin.Engine, method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestStaticPages(t *testing.T) {
	engine, _ := newTestEngine(t)

	t.Run("home", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Tor Weather")
	})

	t.Run("subscribe form", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/subscribe", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="fingerprint"`)
	})

	t.Run("notification info is rendered from markdown", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/notification-info", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<h1")
		assert.Contains(t, w.Body.String(), "Four kinds of email.")
	})

	t.Run("pending", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/pending/somekey", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/resend-confirmation/somekey")
	})
}

func TestSubscribeSubmission(t *testing.T) {
	t.Run("redirects to pending", func(t *testing.T) {
		engine, st := newTestEngine(t)
		w := doRequest(engine, http.MethodPost, "/subscribe", url.Values{
			"email":         {"watcher@example.org"},
			"fingerprint":   {testFingerprint},
			"get_node_down": {"true"},
		})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/pending/"+st.subscribe.resp.ConfirmAuth, w.Header().Get("Location"))
		assert.Equal(t, "watcher@example.org", st.subscribe.got.Email)
		assert.Equal(t, float64(1), testutil.ToFloat64(st.metrics.SubscriptionsCreated))
	})

	t.Run("rejects malformed fingerprint at binding", func(t *testing.T) {
		engine, st := newTestEngine(t)
		w := doRequest(engine, http.MethodPost, "/subscribe", url.Values{
			"email":       {"watcher@example.org"},
			"fingerprint": {"nothex"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "fingerprint")
		assert.Empty(t, st.subscribe.got.Email, "use case never reached")
	})

	t.Run("duplicate shows the form error", func(t *testing.T) {
		engine, st := newTestEngine(t)
		st.subscribe.err = errors.NewConflictError("you already have a subscription for this relay")
		w := doRequest(engine, http.MethodPost, "/subscribe", url.Values{
			"email":         {"watcher@example.org"},
			"fingerprint":   {testFingerprint},
			"get_node_down": {"true"},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already have a subscription")
	})
}

func TestAuthKeyPages(t *testing.T) {
	t.Run("confirm", func(t *testing.T) {
		engine, st := newTestEngine(t)
		w := doRequest(engine, http.MethodGet, "/confirm/confirmkey", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "confirmkey", st.confirm.gotKey)
		assert.Contains(t, w.Body.String(), "watcher@example.org")
	})

	t.Run("confirm with a dead link", func(t *testing.T) {
		engine, st := newTestEngine(t)
		st.confirm.err = errors.NewNotFoundError("invalid confirmation link")
		w := doRequest(engine, http.MethodGet, "/confirm/nosuchkey", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "invalid confirmation link")
	})

	t.Run("unsubscribe counts", func(t *testing.T) {
		engine, st := newTestEngine(t)
		w := doRequest(engine, http.MethodGet, "/unsubscribe/unsubkey", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "unsubkey", st.unsubscribe.gotKey)
		assert.Equal(t, float64(1), testutil.ToFloat64(st.metrics.Unsubscribes))
	})

	t.Run("preferences form is prefilled", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		w := doRequest(engine, http.MethodGet, "/preferences/prefkey", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="get_node_down" value="true" checked`)
	})

	t.Run("preferences update", func(t *testing.T) {
		engine, st := newTestEngine(t)
		w := doRequest(engine, http.MethodPost, "/preferences/prefkey", url.Values{
			"get_band_low":       {"true"},
			"band_low_threshold": {"50"},
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, st.updatePrefs.got.GetBandLow)
		assert.Equal(t, int64(50), st.updatePrefs.got.BandLowThreshold)
		assert.Contains(t, w.Body.String(), "saved")
	})
}

func TestOperationalEndpoints(t *testing.T) {
	engine, _ := newTestEngine(t)

	t.Run("healthz", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	})

	t.Run("metrics", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
