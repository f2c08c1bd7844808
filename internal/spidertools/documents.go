package spidertools

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/attachments"
	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

// AttachTool handles the document_attach MCP tool.
type AttachTool struct {
	store   *collection.Store
	blobs   attachments.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewAttachTool creates an AttachTool. Without a blob store only URIs can
// be attached.
func NewAttachTool(store *collection.Store, blobs attachments.Store, m *metrics.Metrics, logger *slog.Logger) *AttachTool {
	return &AttachTool{store: store, blobs: blobs, metrics: m, log: toolLogger(logger)}
}

// Definition returns the MCP tool definition for document_attach.
func (t *AttachTool) Definition() mcp.Tool {
	return mcp.NewTool("document_attach",
		mcp.WithDescription("Attach a document to a spider, either as a URI or by copying a local file "+
			"into the document store. Each spider holds a limited number of documents; "+
			"attaching beyond the limit is refused without changing anything."),
		mcp.WithString("spider_id", mcp.Required(), mcp.Description("Spider id")),
		mcp.WithString("uri", mcp.Description("URI to record as-is")),
		mcp.WithString("path", mcp.Description("Local file to copy into the document store")),
	)
}

// Handle processes the document_attach tool call.
func (t *AttachTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spiderID := strings.TrimSpace(req.GetString("spider_id", ""))
	if spiderID == "" {
		return mcp.NewToolResultError("'spider_id' is required"), nil
	}
	uri := strings.TrimSpace(req.GetString("uri", ""))
	path := strings.TrimSpace(req.GetString("path", ""))
	switch {
	case uri == "" && path == "":
		return mcp.NewToolResultError("'uri' or 'path' is required"), nil
	case uri != "" && path != "":
		return mcp.NewToolResultError("pass either 'uri' or 'path', not both"), nil
	}

	if path != "" {
		if t.blobs == nil {
			return mcp.NewToolResultError("no document store is configured; attach a URI instead"), nil
		}
		if _, err := t.store.GetSpider(ctx, spiderID); err != nil {
			return errorResult("attach document", err), nil
		}
		docs, err := t.store.Documents(ctx, spiderID)
		if err != nil {
			return errorResult("attach document", err), nil
		}
		if len(docs) >= t.store.MaxDocuments() {
			return mcp.NewToolResultError(fmt.Sprintf(
				"spider %s already has %d documents (limit %d); nothing was attached",
				spiderID, len(docs), t.store.MaxDocuments())), nil
		}
		stored, err := storeFile(ctx, t.blobs, spiderID, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to store %s: %v", path, err)), nil
		}
		uri = stored
	}

	ok, err := t.store.AddDocument(ctx, spiderID, uri)
	if err != nil || !ok {
		if path != "" {
			deleteBlob(ctx, t.log, t.blobs, uri)
		}
		if err != nil {
			return errorResult("attach document", err), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf(
			"spider %s already has the maximum of %d documents; nothing was attached",
			spiderID, t.store.MaxDocuments())), nil
	}
	t.metrics.RecordEvent(metrics.EventDocument)
	return mcp.NewToolResultText(fmt.Sprintf("Document attached to spider %s.\nURI: %s", spiderID, uri)), nil
}

// storeFile copies a local file into blobs and returns its URI.
func storeFile(ctx context.Context, blobs attachments.Store, spiderID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := filepath.Base(path)
	info, err := blobs.Put(ctx, attachments.NewKey(spiderID, name), f, attachments.PutOptions{
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Metadata:    map[string]string{"spider": spiderID, "filename": name},
	})
	if err != nil {
		return "", err
	}
	return info.URI, nil
}

// deleteBlob removes the stored file behind uri when blobs owns it. URIs
// that point elsewhere are left alone.
func deleteBlob(ctx context.Context, log *slog.Logger, blobs attachments.Store, uri string) bool {
	if blobs == nil {
		return false
	}
	key, ok := attachments.KeyFromURI(blobs, uri)
	if !ok {
		return false
	}
	deleted, err := blobs.Delete(ctx, key)
	if err != nil {
		log.Warn("failed to delete stored document", "key", key, "error", err)
		return false
	}
	return deleted
}

// DetachTool handles the document_remove MCP tool.
type DetachTool struct {
	store *collection.Store
	blobs attachments.Store
	log   *slog.Logger
}

// NewDetachTool creates a DetachTool.
func NewDetachTool(store *collection.Store, blobs attachments.Store, logger *slog.Logger) *DetachTool {
	return &DetachTool{store: store, blobs: blobs, log: toolLogger(logger)}
}

// Definition returns the MCP tool definition for document_remove.
func (t *DetachTool) Definition() mcp.Tool {
	return mcp.NewTool("document_remove",
		mcp.WithDescription("Remove a document from a spider. A file copied into the document store is deleted too."),
		mcp.WithNumber("document_id", mcp.Required(), mcp.Description("Document id from spider_get")),
	)
}

// Handle processes the document_remove tool call.
func (t *DetachTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(intArg(req, "document_id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("'document_id' is required"), nil
	}
	doc, err := t.store.RemoveDocument(ctx, id)
	if err != nil {
		return errorResult("remove document", err), nil
	}
	msg := fmt.Sprintf("Document %d removed from spider %s.", doc.ID, doc.SpiderID)
	if deleteBlob(ctx, t.log, t.blobs, doc.URI) {
		msg += " Stored file deleted."
	}
	return mcp.NewToolResultText(msg), nil
}
