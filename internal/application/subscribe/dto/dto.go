// Package dto carries the request and response shapes exchanged between
// the web frontend and the subscribe use cases.
package dto

// SubscribeRequest is the subscribe form submission.
type SubscribeRequest struct {
	Email       string `form:"email" binding:"required,email,max=75"`
	Fingerprint string `form:"fingerprint" binding:"required,fingerprint"`

	GetNodeDown     bool `form:"get_node_down"`
	NodeDownGraceHr int  `form:"node_down_grace_pd"`

	GetVersion  bool   `form:"get_version"`
	VersionType string `form:"version_type"`

	GetBandLow       bool  `form:"get_band_low"`
	BandLowThreshold int64 `form:"band_low_threshold"`

	GetTShirt bool `form:"get_t_shirt"`
}

// SubscriptionSettings is one notification rule as shown on the
// preferences page.
type SubscriptionSettings struct {
	Type         string `form:"-" json:"type"`
	GraceHours   int    `form:"node_down_grace_pd" json:"grace_hours,omitempty"`
	NotifyType   string `form:"version_type" json:"notify_type,omitempty"`
	ThresholdKBs int64  `form:"band_low_threshold" json:"threshold_kbs,omitempty"`
}

// UpdatePreferencesRequest is the preferences form submission.
type UpdatePreferencesRequest struct {
	GetNodeDown     bool `form:"get_node_down"`
	NodeDownGraceHr int  `form:"node_down_grace_pd"`

	GetVersion  bool   `form:"get_version"`
	VersionType string `form:"version_type"`

	GetBandLow       bool  `form:"get_band_low"`
	BandLowThreshold int64 `form:"band_low_threshold"`

	GetTShirt bool `form:"get_t_shirt"`
}

// SubscriberResponse describes a subscriber and their relay for the
// pending, confirmed, and preferences pages.
type SubscriberResponse struct {
	Email             string                 `json:"email"`
	RouterName        string                 `json:"router_name"`
	RouterFingerprint string                 `json:"router_fingerprint"`
	Confirmed         bool                   `json:"confirmed"`
	ConfirmAuth       string                 `json:"-"`
	UnsubsAuth        string                 `json:"-"`
	PrefAuth          string                 `json:"-"`
	Subscriptions     []SubscriptionSettings `json:"subscriptions"`
}
