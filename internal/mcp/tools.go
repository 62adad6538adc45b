package mcp

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/editor"
	"github.com/rpggio/wellnest/internal/domain/record"
)

// settleTimeout bounds how long auth tools wait for the provider's event to
// reach the session.
const settleTimeout = 2 * time.Second

type tools struct {
	svc Services
}

func registerTools(server *sdkmcp.Server, svc Services) {
	t := &tools{svc: svc}

	// Auth
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "sign_up", Description: "Create an account with email and password and sign in"}, t.signUp)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "sign_in", Description: "Sign in with email and password"}, t.signIn)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "sign_out", Description: "Sign out and forget the local session"}, t.signOut)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "sign_in_with_provider", Description: "Start an external sign-in; returns the address to open in a browser"}, t.signInWithProvider)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "complete_sign_in", Description: "Finish an external sign-in or password recovery from the return address"}, t.completeSignIn)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "request_password_reset", Description: "Email a password recovery link"}, t.requestPasswordReset)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "update_password", Description: "Set a new password for the signed-in user"}, t.updatePassword)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "auth_status", Description: "Report who is signed in"}, t.authStatus)

	// Browsing
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_published_sessions", Description: "List published wellness sessions, newest first"}, t.listPublished)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_my_sessions", Description: "List your sessions split into drafts and published, most recently updated first"}, t.listMine)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_session", Description: "Get one session; drafts are visible only to their owner"}, t.getSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_session_history", Description: "List the lifecycle events of one of your sessions"}, t.history)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_notifications", Description: "List recent notifications such as save confirmations and failures"}, t.notifications)

	// Authoring
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "open_editor", Description: "Open the editor on a session, or on a new draft when no id is given"}, t.openEditor)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "edit_field", Description: "Change one editor field; drafts autosave after a pause in edits"}, t.editField)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "save_draft", Description: "Save the open editor now; requires a title"}, t.saveDraft)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "publish", Description: "Publish the open editor's session; requires a title"}, t.publish)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "unpublish", Description: "Return the open editor's published session to drafts"}, t.unpublish)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "delete_session", Description: "Permanently delete the open editor's session"}, t.deleteSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "close_editor", Description: "Close the editor, cancelling any pending autosave"}, t.closeEditor)
}

func (t *tools) signUp(ctx context.Context, _ *sdkmcp.CallToolRequest, in SignUpParams) (*sdkmcp.CallToolResult, AuthStatus, error) {
	if err := t.svc.Auth.SignUp(ctx, in.Email, in.Password); err != nil {
		return nil, AuthStatus{}, toolError(err)
	}
	return nil, t.settle(ctx, true), nil
}

func (t *tools) signIn(ctx context.Context, _ *sdkmcp.CallToolRequest, in SignInParams) (*sdkmcp.CallToolResult, AuthStatus, error) {
	if err := t.svc.Auth.SignIn(ctx, in.Email, in.Password, in.RememberMe); err != nil {
		return nil, AuthStatus{}, toolError(err)
	}
	return nil, t.settle(ctx, true), nil
}

func (t *tools) signOut(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, AuthStatus, error) {
	t.svc.Workspace.CloseEditor(getEditorKey(ctx))
	if err := t.svc.Auth.SignOut(ctx); err != nil {
		return nil, AuthStatus{}, toolError(err)
	}
	return nil, authStatus(t.svc.Auth.State()), nil
}

func (t *tools) signInWithProvider(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProviderParams) (*sdkmcp.CallToolResult, AuthorizeResult, error) {
	address, err := t.svc.Auth.SignInWithExternalProvider(ctx, in.Provider)
	if err != nil {
		return nil, AuthorizeResult{}, toolError(err)
	}
	return nil, AuthorizeResult{AuthorizeURL: address}, nil
}

func (t *tools) completeSignIn(ctx context.Context, _ *sdkmcp.CallToolRequest, in CompleteSignInParams) (*sdkmcp.CallToolResult, CompleteSignInResult, error) {
	cleaned, err := t.svc.Auth.CompleteExternalSignIn(ctx, in.Address)
	if err != nil {
		return nil, CompleteSignInResult{}, toolError(err)
	}
	return nil, CompleteSignInResult{Address: cleaned, Status: t.settle(ctx, true)}, nil
}

func (t *tools) requestPasswordReset(ctx context.Context, _ *sdkmcp.CallToolRequest, in PasswordResetParams) (*sdkmcp.CallToolResult, MessageResult, error) {
	if err := t.svc.Auth.RequestPasswordReset(ctx, in.Email); err != nil {
		return nil, MessageResult{}, toolError(err)
	}
	return nil, MessageResult{Message: "If the address has an account, a recovery link is on its way."}, nil
}

func (t *tools) updatePassword(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdatePasswordParams) (*sdkmcp.CallToolResult, MessageResult, error) {
	if err := t.svc.Auth.UpdatePassword(ctx, in.Password); err != nil {
		return nil, MessageResult{}, toolError(err)
	}
	return nil, MessageResult{Message: "Password updated."}, nil
}

func (t *tools) authStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, AuthStatus, error) {
	return nil, authStatus(t.svc.Auth.State()), nil
}

func (t *tools) listPublished(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, PublishedSessionsResult, error) {
	recs, err := t.svc.Records.ListPublished(ctx)
	if err != nil {
		return nil, PublishedSessionsResult{}, toolError(err)
	}
	return nil, PublishedSessionsResult{Sessions: recordViews(recs)}, nil
}

func (t *tools) listMine(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, MySessionsResult, error) {
	userID, err := t.requireUser()
	if err != nil {
		return nil, MySessionsResult{}, toolError(err)
	}
	recs, err := t.svc.Records.ListOwned(ctx, userID)
	if err != nil {
		return nil, MySessionsResult{}, toolError(err)
	}
	parts := record.Partition(recs)
	return nil, MySessionsResult{
		Drafts:    recordViews(parts.Drafts),
		Published: recordViews(parts.Published),
	}, nil
}

func (t *tools) getSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetSessionParams) (*sdkmcp.CallToolResult, RecordView, error) {
	if in.ID == "" {
		return nil, RecordView{}, toolError(record.ErrMissingID)
	}
	rec, err := t.svc.Records.Get(ctx, getUserID(ctx), in.ID)
	if err != nil {
		return nil, RecordView{}, toolError(err)
	}
	return nil, recordView(*rec), nil
}

func (t *tools) history(ctx context.Context, _ *sdkmcp.CallToolRequest, in HistoryParams) (*sdkmcp.CallToolResult, HistoryResult, error) {
	userID, err := t.requireUser()
	if err != nil {
		return nil, HistoryResult{}, toolError(err)
	}
	if in.ID == "" {
		return nil, HistoryResult{}, toolError(record.ErrMissingID)
	}
	entries, err := t.svc.Activity.RecordHistory(ctx, userID, in.ID)
	if err != nil {
		return nil, HistoryResult{}, toolError(err)
	}
	return nil, HistoryResult{Entries: activityViews(entries)}, nil
}

func (t *tools) notifications(ctx context.Context, _ *sdkmcp.CallToolRequest, in NotificationsParams) (*sdkmcp.CallToolResult, NotificationsResult, error) {
	items := t.svc.Notifications.Recent(in.Limit)
	if in.Drain {
		items = t.svc.Notifications.Drain()
		if in.Limit > 0 && len(items) > in.Limit {
			items = items[len(items)-in.Limit:]
		}
	}
	return nil, NotificationsResult{Notifications: notificationViews(items)}, nil
}

func (t *tools) openEditor(ctx context.Context, _ *sdkmcp.CallToolRequest, in OpenEditorParams) (*sdkmcp.CallToolResult, EditorView, error) {
	if _, err := t.requireUser(); err != nil {
		return nil, EditorView{}, toolError(err)
	}
	ed, err := t.svc.Workspace.Open(ctx, getEditorKey(ctx), in.ID)
	if err != nil {
		return nil, EditorView{}, toolError(err)
	}
	return nil, editorView(ed), nil
}

func (t *tools) editField(ctx context.Context, _ *sdkmcp.CallToolRequest, in EditFieldParams) (*sdkmcp.CallToolResult, EditorView, error) {
	return t.withEditor(ctx, func(ed *EditorSession) error {
		return ed.Controller.OnFieldChange(editor.Field(in.Field), in.Value)
	})
}

func (t *tools) saveDraft(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, EditorView, error) {
	return t.withEditor(ctx, func(ed *EditorSession) error {
		return ed.Controller.SaveDraftNow(ctx)
	})
}

func (t *tools) publish(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, EditorView, error) {
	return t.withEditor(ctx, func(ed *EditorSession) error {
		return ed.Controller.Publish(ctx)
	})
}

func (t *tools) unpublish(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, EditorView, error) {
	return t.withEditor(ctx, func(ed *EditorSession) error {
		return ed.Controller.Unpublish(ctx)
	})
}

func (t *tools) deleteSession(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, EditorView, error) {
	return t.withEditor(ctx, func(ed *EditorSession) error {
		return ed.Controller.Delete(ctx)
	})
}

func (t *tools) closeEditor(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, CloseEditorResult, error) {
	return nil, CloseEditorResult{Closed: t.svc.Workspace.CloseEditor(getEditorKey(ctx))}, nil
}

func (t *tools) withEditor(ctx context.Context, fn func(*EditorSession) error) (*sdkmcp.CallToolResult, EditorView, error) {
	ed, err := t.svc.Workspace.Editor(getEditorKey(ctx))
	if err != nil {
		return nil, EditorView{}, toolError(err)
	}
	if err := fn(ed); err != nil {
		return nil, EditorView{}, toolError(err)
	}
	return nil, editorView(ed), nil
}

// requireUser reads the session live; the request context may predate a
// sign-out.
func (t *tools) requireUser() (string, error) {
	return t.svc.Auth.CurrentUserID()
}

// settle waits briefly until the session's authenticated state matches
// want, then reports it.
func (t *tools) settle(ctx context.Context, want bool) AuthStatus {
	deadline := time.NewTimer(settleTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		st := t.svc.Auth.State()
		if st.Authenticated() == want {
			return authStatus(st)
		}
		select {
		case <-ctx.Done():
			return authStatus(st)
		case <-deadline.C:
			return authStatus(st)
		case <-tick.C:
		}
	}
}

var _ AuthService = (*auth.Session)(nil)
