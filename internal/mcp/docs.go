package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `wellnest manages guided wellness sessions: titled, tagged records that point at a session content file.

Core concepts:
- Auth session: one signed-in identity per server. Authoring tools need it; browsing published sessions does not.
- Session record: title, tags, content file URL, and a status of draft or published. Drafts are private to their owner.
- Editor: one open editor per MCP session. Field edits autosave as a draft after a pause; publish, unpublish and delete act on the open editor.

Default workflow:
1) auth_status; sign_in or sign_up if not authenticated.
2) list_my_sessions to find work, or list_published_sessions to browse.
3) open_editor (with an id to resume, without one for a new draft).
4) edit_field for title, tags (comma separated) and json_file_url.
5) save_draft to save immediately, or publish when the title is set.
6) list_notifications to read save confirmations and failures; close_editor when done.

Docs:
- wellnest://docs/index
- wellnest://docs/lifecycle
- wellnest://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "wellnest://docs/index",
		Name:        "docs_index",
		Title:       "wellnest docs index",
		Description: "Entry point: what the tools do and which doc to read next.",
		Content: `# wellnest: Agent Docs Index

## Quick start

1. ` + "`auth_status`" + `, then ` + "`sign_in`" + ` / ` + "`sign_up`" + ` if needed.
2. ` + "`open_editor`" + ` without an id to start a new draft.
3. ` + "`edit_field`" + ` the title, tags and content URL.
4. ` + "`publish`" + `.

External sign-in: ` + "`sign_in_with_provider`" + ` returns an address to open in a browser. Pass the address the browser ends on to ` + "`complete_sign_in`" + `. Password recovery links are completed the same way.

## Docs

- ` + "`wellnest://docs/lifecycle`" + ` describes draft, published and deleted states and autosave.
- ` + "`wellnest://docs/errors`" + ` lists error codes and what to do about them.
`,
	},
	{
		URI:         "wellnest://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Session lifecycle",
		Description: "Editor phases, autosave behaviour and status transitions.",
		Content: `# Session lifecycle

An editor is in one of four phases:

- ` + "`new`" + `: nothing stored yet. The first autosave creates a draft and the editor address becomes ` + "`/editor/{id}`" + `.
- ` + "`persisted-draft`" + `: edits autosave five seconds after the last change. Unchanged content is never re-sent.
- ` + "`persisted-published`" + `: edits are kept in the editor until you ` + "`publish`" + ` again or ` + "`unpublish`" + `.
- ` + "`gone`" + `: the session was deleted; the editor accepts no further actions.

Autosave stores an empty title as "Untitled Session". Saving explicitly and publishing both require a real title.

Publishing from a new editor creates the session directly as published. Publishing navigates back to ` + "`/my-sessions`" + `.

Failures are reported both as the tool error and as a notification (` + "`list_notifications`" + `). A failed autosave is not retried until the next edit.
`,
	},
	{
		URI:         "wellnest://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Tool error codes with recovery hints.",
		Content: `# Error codes

| Code | Meaning | Recovery |
|---|---|---|
| NOT_AUTHENTICATED | no signed-in identity | sign_in |
| SESSION_PENDING | the auth session is still resolving | retry shortly |
| NO_OPEN_EDITOR | no editor is open for this MCP session | open_editor |
| RECORD_GONE | the editor's session was deleted | open_editor |
| INVALID_TRANSITION | the action does not apply in the editor's phase | check editor phase |
| TITLE_REQUIRED | save or publish without a title | edit_field title |
| UNKNOWN_FIELD | edit_field with an unsupported field | use title, tags or json_file_url |
| RECORD_NOT_FOUND | no such session, or a draft owned by someone else | list_my_sessions |
| INVALID_CREDENTIALS, EMAIL_TAKEN, WEAK_PASSWORD, INVALID_EMAIL | sign-in or sign-up rejected | fix the input |
| UNSUPPORTED_PROVIDER, INVALID_TOKEN | external sign-in rejected | start again |
| VALIDATION_FAILED | invalid input | fix the input |
| REMOTE_ERROR | the store or identity provider failed | retry |
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
