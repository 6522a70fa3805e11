// Package handlers serves the subscriber-facing HTML pages.
package handlers

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/domain/subscription"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
	"torweather/internal/shared/services/markdown"
)

// Executor interfaces keep the handler decoupled from the concrete use
// case structs.
type SubscribeExecutor interface {
	Execute(ctx context.Context, req dto.SubscribeRequest) (*dto.SubscriberResponse, error)
}

type ConfirmExecutor interface {
	Execute(ctx context.Context, confirmAuth string) (*dto.SubscriberResponse, error)
}

type ResendConfirmationExecutor interface {
	Execute(ctx context.Context, confirmAuth string) (*dto.SubscriberResponse, error)
}

type UnsubscribeExecutor interface {
	Execute(ctx context.Context, unsubsAuth string) (*dto.SubscriberResponse, error)
}

type GetPreferencesExecutor interface {
	Execute(ctx context.Context, prefAuth string) (*dto.SubscriberResponse, error)
}

type UpdatePreferencesExecutor interface {
	Execute(ctx context.Context, prefAuth string, req dto.UpdatePreferencesRequest) (*dto.SubscriberResponse, error)
}

// WebHandler renders the public pages: home, subscribe, pending,
// confirm, unsubscribe, preferences, and the notification type overview.
type WebHandler struct {
	subscribe   SubscribeExecutor
	confirm     ConfirmExecutor
	resend      ResendConfirmationExecutor
	unsubscribe UnsubscribeExecutor
	getPrefs    GetPreferencesExecutor
	updatePrefs UpdatePreferencesExecutor
	metrics     *observability.Metrics
	infoHTML    template.HTML
	logger      logger.Interface
}

// NewWebHandler creates the web handler. infoMarkdown is the
// notification type overview document, rendered to sanitized HTML once
// at startup.
func NewWebHandler(
	subscribe SubscribeExecutor,
	confirm ConfirmExecutor,
	resend ResendConfirmationExecutor,
	unsubscribe UnsubscribeExecutor,
	getPrefs GetPreferencesExecutor,
	updatePrefs UpdatePreferencesExecutor,
	metrics *observability.Metrics,
	md markdown.MarkdownService,
	infoMarkdown string,
	logger logger.Interface,
) (*WebHandler, error) {
	infoHTML, err := md.ToHTMLSanitized(infoMarkdown)
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		subscribe:   subscribe,
		confirm:     confirm,
		resend:      resend,
		unsubscribe: unsubscribe,
		getPrefs:    getPrefs,
		updatePrefs: updatePrefs,
		metrics:     metrics,
		infoHTML:    template.HTML(infoHTML),
		logger:      logger,
	}, nil
}

// Home renders the landing page.
func (h *WebHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{})
}

// SubscribeForm renders an empty subscribe form.
func (h *WebHandler) SubscribeForm(c *gin.Context) {
	h.renderSubscribeForm(c, http.StatusOK, &dto.SubscribeRequest{
		GetNodeDown:      true,
		NodeDownGraceHr:  subscription.GracePeriodDefault,
		BandLowThreshold: subscription.ThresholdDefault,
	}, "")
}

// Subscribe handles the subscribe form submission. On success the
// subscriber lands on the pending page and gets the confirmation mail.
func (h *WebHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderSubscribeForm(c, http.StatusUnprocessableEntity, &req,
			"Please supply a valid email address and a 40 character relay fingerprint.")
		return
	}

	resp, err := h.subscribe.Execute(c.Request.Context(), req)
	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil && appErr.Code < http.StatusInternalServerError {
			h.renderSubscribeForm(c, appErr.Code, &req, appErr.Message)
			return
		}
		h.renderError(c, err)
		return
	}

	h.metrics.SubscriptionsCreated.Inc()
	c.Redirect(http.StatusSeeOther, "/pending/"+resp.ConfirmAuth)
}

func (h *WebHandler) renderSubscribeForm(c *gin.Context, status int, form *dto.SubscribeRequest, errMsg string) {
	c.HTML(status, "subscribe.html", gin.H{
		"Form":             form,
		"Error":            errMsg,
		"GracePeriodMin":   subscription.GracePeriodMin,
		"GracePeriodMax":   subscription.GracePeriodMax,
		"ThresholdDefault": subscription.ThresholdDefault,
	})
}

// Pending renders the waiting-for-confirmation page with a resend link.
func (h *WebHandler) Pending(c *gin.Context) {
	c.HTML(http.StatusOK, "pending.html", gin.H{
		"ConfirmAuth": c.Param("confirm_auth"),
	})
}

// Confirm marks the subscription confirmed and shows the management links.
func (h *WebHandler) Confirm(c *gin.Context) {
	resp, err := h.confirm.Execute(c.Request.Context(), c.Param("confirm_auth"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "confirm.html", gin.H{"Subscriber": resp})
}

// ResendConfirmation mails the confirmation link again and returns to the
// pending page.
func (h *WebHandler) ResendConfirmation(c *gin.Context) {
	confirmAuth := c.Param("confirm_auth")
	if _, err := h.resend.Execute(c.Request.Context(), confirmAuth); err != nil {
		h.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "pending.html", gin.H{
		"ConfirmAuth": confirmAuth,
		"Resent":      true,
	})
}

// Unsubscribe removes the subscriber and all their notification rules.
func (h *WebHandler) Unsubscribe(c *gin.Context) {
	resp, err := h.unsubscribe.Execute(c.Request.Context(), c.Param("unsubs_auth"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.metrics.Unsubscribes.Inc()
	c.HTML(http.StatusOK, "unsubscribe.html", gin.H{"Subscriber": resp})
}

// PreferencesForm renders the preferences form prefilled with the
// subscriber's current settings.
func (h *WebHandler) PreferencesForm(c *gin.Context) {
	resp, err := h.getPrefs.Execute(c.Request.Context(), c.Param("pref_auth"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.renderPreferencesForm(c, http.StatusOK, c.Param("pref_auth"), resp, "", false)
}

// UpdatePreferences applies the preferences form submission.
func (h *WebHandler) UpdatePreferences(c *gin.Context) {
	prefAuth := c.Param("pref_auth")

	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderError(c, errors.NewBadRequestError("malformed preferences submission"))
		return
	}

	resp, err := h.updatePrefs.Execute(c.Request.Context(), prefAuth, req)
	if err != nil {
		if errors.IsValidationError(err) {
			current, getErr := h.getPrefs.Execute(c.Request.Context(), prefAuth)
			if getErr != nil {
				h.renderError(c, getErr)
				return
			}
			h.renderPreferencesForm(c, http.StatusUnprocessableEntity, prefAuth, current,
				errors.GetAppError(err).Message, false)
			return
		}
		h.renderError(c, err)
		return
	}

	h.renderPreferencesForm(c, http.StatusOK, prefAuth, resp, "", true)
}

func (h *WebHandler) renderPreferencesForm(c *gin.Context, status int, prefAuth string, sub *dto.SubscriberResponse, errMsg string, saved bool) {
	// Pointers so the template's if treats absent rules as false.
	selected := make(map[string]*dto.SubscriptionSettings, len(sub.Subscriptions))
	for i := range sub.Subscriptions {
		s := sub.Subscriptions[i]
		selected[s.Type] = &s
	}

	c.HTML(status, "preferences.html", gin.H{
		"PrefAuth":         prefAuth,
		"Subscriber":       sub,
		"Selected":         selected,
		"Error":            errMsg,
		"Saved":            saved,
		"GracePeriodMin":   subscription.GracePeriodMin,
		"GracePeriodMax":   subscription.GracePeriodMax,
		"ThresholdDefault": subscription.ThresholdDefault,
	})
}

// NotificationInfo renders the notification type overview.
func (h *WebHandler) NotificationInfo(c *gin.Context) {
	c.HTML(http.StatusOK, "notification_info.html", gin.H{"Content": h.infoHTML})
}

func (h *WebHandler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong on our end. Please try again later."

	if appErr := errors.GetAppError(err); appErr != nil {
		status = appErr.Code
		if status < http.StatusInternalServerError {
			msg = appErr.Message
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.HTML(status, "error.html", gin.H{"Message": msg})
}
