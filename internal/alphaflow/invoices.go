package alphaflow

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"invoicer/internal/invoice"
	"invoicer/pkg/services"
)

var _ services.Invoicing = (*Client)(nil)

// CreateInvoice posts the serialized document and returns the assigned id
// and number. The number may be empty.
func (c *Client) CreateInvoice(ctx context.Context, doc *invoice.Document) (*services.CreatedInvoice, error) {
	const op = "CreateInvoice"

	payload := BuildInvoicePayload(doc)

	c.log.Info().
		Str("trading_partner_id", doc.TradingPartnerID).
		Float64("net", payload.TotalNetAmount).
		Float64("gross", payload.TotalAmount).
		Msg("Creating outgoing invoice")

	req, err := c.newJSONRequest(ctx, http.MethodPost, invoicesPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: %s: %w", op, err)
	}

	var record map[string]any
	if err := c.send(ctx, op, req, &record); err != nil {
		return nil, err
	}

	created := &services.CreatedInvoice{
		ID:     stringField(record, "id"),
		Number: stringField(record, "number"),
	}
	if created.ID == "" {
		return nil, fmt.Errorf("alphaflow: %s: %w", op, ErrMissingInvoiceID)
	}

	c.log.Info().
		Str("invoice_id", created.ID).
		Str("invoice_number", created.Number).
		Msg("Outgoing invoice created")

	return created, nil
}

// GetInvoice returns the raw invoice record.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (map[string]any, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, invoicesPath+"/"+url.PathEscape(invoiceID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: GetInvoice: %w", err)
	}

	var record map[string]any
	if err := c.send(ctx, "GetInvoice", req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateInvoice patches fields of an invoice and returns the updated record.
func (c *Client) UpdateInvoice(ctx context.Context, invoiceID string, fields map[string]any) (map[string]any, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPatch, invoicesPath+"/"+url.PathEscape(invoiceID), nil, fields)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: UpdateInvoice: %w", err)
	}

	var record map[string]any
	if err := c.send(ctx, "UpdateInvoice", req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// GenerateDocument renders the invoice document from a template and returns its id.
func (c *Client) GenerateDocument(ctx context.Context, invoiceID string, settings services.DocumentSettings) (string, error) {
	const op = "GenerateDocument"

	payload := map[string]any{
		"id":          invoiceID,
		"docTemplate": settings.Template,
		"category":    settings.Category,
		"type":        settings.Type,
		"freeText":    "",
		"textModules": "",
		"download":    false,
		"storeToDms":  settings.StoreToDMS,
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, invoicesPath+"/word", nil, payload)
	if err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	req.Header.Set("Accept-Language", acceptLanguageGerman)

	var record map[string]any
	if err := c.send(ctx, op, req, &record); err != nil {
		return "", err
	}

	documentID := stringField(record, "id")
	c.log.Info().
		Str("invoice_id", invoiceID).
		Str("document_id", documentID).
		Msg("Invoice document generated")
	return documentID, nil
}

// UploadAttachment uploads a PDF to the invoice. When the response does not
// name the new document, the invoice id is returned.
func (c *Client) UploadAttachment(ctx context.Context, invoiceID string, file []byte, filename, category string) (string, error) {
	const op = "UploadAttachment"

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="upload"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", "application/pdf")
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	if _, err := part.Write(file); err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	if err := form.WriteField("upload_fullpath", filename); err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	if err := form.WriteField("category", category); err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint(invoicesPath+"/"+url.PathEscape(invoiceID)+"/uploadfile", nil),
		bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	c.log.Debug().
		Str("invoice_id", invoiceID).
		Str("filename", filename).
		Int("size", len(file)).
		Msg("Uploading attachment")

	var record map[string]any
	if err := c.send(ctx, op, req, &record); err != nil {
		return "", err
	}

	attachmentID := stringField(record, "id")
	if attachmentID == "" {
		attachmentID = invoiceID
	}
	return attachmentID, nil
}

// JoinDocuments merges documents, in the given order, into "Rechnung_<number>".
func (c *Client) JoinDocuments(ctx context.Context, invoiceID, number string, documentIDs []string, documentType string) error {
	const op = "JoinDocuments"

	payload := map[string]any{
		"id":           invoiceID,
		"documentType": documentType,
		"fileName":     "Rechnung_" + number,
		"documents":    strings.Join(documentIDs, ","),
		"download":     false,
		"storeToDms":   true,
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, invoicesPath+"/documents/join", nil, payload)
	if err != nil {
		return fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	return c.send(ctx, op, req, nil)
}

// StartWorkflow starts the named workflow with the invoice as reference.
func (c *Client) StartWorkflow(ctx context.Context, invoiceID, workflowName string) error {
	query := url.Values{"reference": {invoiceID}}
	req, err := c.newJSONRequest(ctx, http.MethodGet, workflowPath+"/start/"+url.PathEscape(workflowName), query, nil)
	if err != nil {
		return fmt.Errorf("alphaflow: StartWorkflow: %w", err)
	}
	return c.send(ctx, "StartWorkflow", req, nil)
}

// ForwardWorkflow moves a workflow instance along the given control flow.
func (c *Client) ForwardWorkflow(ctx context.Context, workflowInstanceID, flowID string) error {
	path := workflowPath + "/forward/" + url.PathEscape(workflowInstanceID) + "/" + url.PathEscape(flowID)
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return fmt.Errorf("alphaflow: ForwardWorkflow: %w", err)
	}
	return c.send(ctx, "ForwardWorkflow", req, nil)
}

// WorkflowInstanceID re-reads the invoice and returns its workflow instance.
func (c *Client) WorkflowInstanceID(ctx context.Context, invoiceID string) (string, error) {
	record, err := c.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	instanceID := stringField(record, "workflow")
	if instanceID == "" {
		return "", fmt.Errorf("alphaflow: invoice %s: %w", invoiceID, ErrNoWorkflowInstance)
	}
	return instanceID, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
