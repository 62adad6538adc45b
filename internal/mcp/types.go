package mcp

import (
	"time"

	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/notify"
)

type SignUpParams struct {
	Email    string `json:"email" jsonschema:"account email address"`
	Password string `json:"password" jsonschema:"at least 6 characters"`
}

type SignInParams struct {
	Email      string `json:"email" jsonschema:"account email address"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty" jsonschema:"keep the session on this device"`
}

type ProviderParams struct {
	Provider string `json:"provider" jsonschema:"external provider name, e.g. google"`
}

type CompleteSignInParams struct {
	Address string `json:"address" jsonschema:"the full return address the provider redirected to"`
}

type PasswordResetParams struct {
	Email string `json:"email"`
}

type UpdatePasswordParams struct {
	Password string `json:"password" jsonschema:"the new password"`
}

type GetSessionParams struct {
	ID string `json:"id" jsonschema:"session id"`
}

type OpenEditorParams struct {
	ID string `json:"id,omitempty" jsonschema:"session id to edit; omit to start a new draft"`
}

type EditFieldParams struct {
	Field string `json:"field" jsonschema:"title, tags or json_file_url"`
	Value string `json:"value" jsonschema:"new field value; tags are comma separated"`
}

type HistoryParams struct {
	ID string `json:"id" jsonschema:"session id"`
}

type NotificationsParams struct {
	Limit int  `json:"limit,omitempty" jsonschema:"maximum number of notifications, newest last"`
	Drain bool `json:"drain,omitempty" jsonschema:"remove returned notifications from the feed"`
}

type EmptyParams struct{}

// AuthStatus reports the current auth session.
type AuthStatus struct {
	Authenticated  bool   `json:"authenticated"`
	Loading        bool   `json:"loading"`
	SessionLoading bool   `json:"session_loading"`
	UserID         string `json:"user_id,omitempty"`
	Email          string `json:"email,omitempty"`
	Provider       string `json:"provider,omitempty"`
	RememberMe     bool   `json:"remember_me,omitempty"`
}

type AuthorizeResult struct {
	AuthorizeURL string `json:"authorize_url"`
}

type CompleteSignInResult struct {
	Address string     `json:"address"`
	Status  AuthStatus `json:"status"`
}

type MessageResult struct {
	Message string `json:"message"`
}

type RecordView struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Tags             []string `json:"tags"`
	ContentReference string   `json:"json_file_url"`
	Status           string   `json:"status"`
	OwnerID          string   `json:"user_id"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type PublishedSessionsResult struct {
	Sessions []RecordView `json:"sessions"`
}

type MySessionsResult struct {
	Drafts    []RecordView `json:"drafts"`
	Published []RecordView `json:"published"`
}

// EditorView is the state of the caller's open editor.
type EditorView struct {
	RecordID         string `json:"record_id,omitempty"`
	Phase            string `json:"phase"`
	Status           string `json:"status"`
	Address          string `json:"address"`
	Location         string `json:"location"`
	Title            string `json:"title"`
	Tags             string `json:"tags"`
	ContentReference string `json:"json_file_url"`
}

type CloseEditorResult struct {
	Closed bool `json:"closed"`
}

type ActivityView struct {
	ID           int64  `json:"id"`
	RecordID     string `json:"record_id,omitempty"`
	ActivityType string `json:"activity_type"`
	Summary      string `json:"summary"`
	CreatedAt    string `json:"created_at"`
}

type HistoryResult struct {
	Entries []ActivityView `json:"entries"`
}

type NotificationView struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	CreatedAt   string `json:"created_at"`
}

type NotificationsResult struct {
	Notifications []NotificationView `json:"notifications"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func authStatus(st auth.State) AuthStatus {
	out := AuthStatus{
		Authenticated:  st.Authenticated(),
		Loading:        st.IsLoading,
		SessionLoading: st.SessionLoading,
	}
	if st.Identity != nil {
		out.UserID = st.Identity.ID
		out.Email = st.Identity.Email
		out.Provider = st.Identity.Provider
		out.RememberMe = st.Identity.RememberMe
	}
	return out
}

func recordView(rec record.Record) RecordView {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return RecordView{
		ID:               rec.ID,
		Title:            rec.Title,
		Tags:             tags,
		ContentReference: rec.ContentReference,
		Status:           string(rec.Status),
		OwnerID:          rec.OwnerID,
		CreatedAt:        formatTime(rec.CreatedAt),
		UpdatedAt:        formatTime(rec.UpdatedAt),
	}
}

func recordViews(recs []record.Record) []RecordView {
	out := make([]RecordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordView(rec))
	}
	return out
}

func editorView(ed *EditorSession) EditorView {
	form := ed.Controller.Form()
	return EditorView{
		RecordID:         ed.Controller.RecordID(),
		Phase:            string(ed.Controller.Phase()),
		Status:           string(ed.Controller.Status()),
		Address:          ed.Controller.Address(),
		Location:         ed.History.Current(),
		Title:            form.Title,
		Tags:             form.Tags,
		ContentReference: form.ContentReference,
	}
}

func activityViews(entries []activity.ActivityEntry) []ActivityView {
	out := make([]ActivityView, 0, len(entries))
	for _, e := range entries {
		view := ActivityView{
			ID:           e.ID,
			ActivityType: string(e.ActivityType),
			Summary:      e.Summary,
			CreatedAt:    formatTime(e.CreatedAt),
		}
		if e.RecordID != nil {
			view.RecordID = *e.RecordID
		}
		out = append(out, view)
	}
	return out
}

func notificationViews(items []notify.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationView{
			Title:       n.Title,
			Description: n.Description,
			Severity:    string(n.Severity),
			CreatedAt:   formatTime(n.CreatedAt),
		})
	}
	return out
}
