package alphaflow_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/alphaflow"
	"invoicer/pkg/services"
)

// plainTransport forwards requests without authentication.
type plainTransport struct{}

func (plainTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req.WithContext(ctx))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *alphaflow.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := alphaflow.NewClient(server.URL, plainTransport{})
	require.NoError(t, err)
	return client
}

const invoicesURL = "/alphaflow-outgoinginvoice/outgoinginvoiceservice/outgoinginvoices"

func TestNewClientRejectsInvalidURL(t *testing.T) {
	_, err := alphaflow.NewClient("::not-a-url", plainTransport{})
	assert.Error(t, err)
}

func TestCreateInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, invoicesURL, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1900.0, body["totalNetAmount"])
		assert.Equal(t, "BE24-2001", body["buyerReference"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": "inv-1", "number": 20250042}`)
	})

	created, err := client.CreateInvoice(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, "inv-1", created.ID)
	assert.Equal(t, "20250042", created.Number)
}

func TestCreateInvoiceErrors(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"number": "R-1"}`)
		})
		_, err := client.CreateInvoice(context.Background(), testDocument())
		assert.ErrorIs(t, err, alphaflow.ErrMissingInvoiceID)
	})

	t.Run("rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message": "tradingPartner invalid"}`)
		})
		_, err := client.CreateInvoice(context.Background(), testDocument())

		var apiErr *alphaflow.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "CreateInvoice", apiErr.Op)
		assert.Contains(t, apiErr.Error(), "tradingPartner invalid")
	})
}

func TestGenerateDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, invoicesURL+"/word", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept-Language"), "de-DE")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "inv-1", body["id"])
		assert.Equal(t, "tpl", body["docTemplate"])
		assert.Equal(t, true, body["storeToDms"])
		assert.Equal(t, false, body["download"])

		_, _ = io.WriteString(w, `{"id": "doc-1"}`)
	})

	docID, err := client.GenerateDocument(context.Background(), "inv-1", services.DocumentSettings{
		Template:   "tpl",
		Category:   "cat",
		Type:       "pdf",
		StoreToDMS: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docID)
}

func TestUploadAttachment(t *testing.T) {
	var responseBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, invoicesURL+"/inv-1/uploadfile", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("upload")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "Dienstleistungsnachweis.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(content))
		assert.Equal(t, "Dienstleistungsnachweis.pdf", r.FormValue("upload_fullpath"))
		assert.Equal(t, "att-cat", r.FormValue("category"))

		_, _ = io.WriteString(w, responseBody)
	})

	responseBody = `{"id": "att-1"}`
	id, err := client.UploadAttachment(context.Background(), "inv-1", []byte("%PDF-1.4"), "Dienstleistungsnachweis.pdf", "att-cat")
	require.NoError(t, err)
	assert.Equal(t, "att-1", id)

	responseBody = ``
	id, err = client.UploadAttachment(context.Background(), "inv-1", []byte("%PDF-1.4"), "Dienstleistungsnachweis.pdf", "att-cat")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", id)
}

func TestJoinDocuments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, invoicesURL+"/documents/join", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Rechnung_R-7", body["fileName"])
		assert.Equal(t, "doc-1,att-1", body["documents"])
		assert.Equal(t, "join-type", body["documentType"])

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.JoinDocuments(context.Background(), "inv-1", "R-7", []string{"doc-1", "att-1"}, "join-type")
	assert.NoError(t, err)
}

func TestWorkflowCalls(t *testing.T) {
	const workflowURL = "/alphaflow-outgoinginvoice/workflowservice/workflowinstance_outgoinginvoice/workflow"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case workflowURL + "/start/Rechnungsfreigabe":
			assert.Equal(t, "inv-1", r.URL.Query().Get("reference"))
		case workflowURL + "/forward/wf-9/flow-3":
		case invoicesURL + "/inv-1":
			_, _ = io.WriteString(w, `{"id": "inv-1", "workflow": {"id": "wf-9"}}`)
		case invoicesURL + "/inv-2":
			_, _ = io.WriteString(w, `{"id": "inv-2", "workflow": null}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	require.NoError(t, client.StartWorkflow(ctx, "inv-1", "Rechnungsfreigabe"))

	instanceID, err := client.WorkflowInstanceID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-9", instanceID)
	require.NoError(t, client.ForwardWorkflow(ctx, instanceID, "flow-3"))

	_, err = client.WorkflowInstanceID(ctx, "inv-2")
	assert.ErrorIs(t, err, alphaflow.ErrNoWorkflowInstance)
}

func TestTradingPartners(t *testing.T) {
	const partnersURL = "/alphaflow-tradingpartner/tradingpartnerservice/tradingpartners"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case partnersURL:
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("i18n"))
			if q.Get("filter[number]") != "" {
				assert.Equal(t, "10", q.Get("count"))
				_, _ = io.WriteString(w, `[{"id": "tp-2", "number": 10002}, {"id": "tp-1", "number": 10001}]`)
				return
			}
			_, _ = io.WriteString(w, `{"items": [
				{"id": "tp-1", "number": "10001", "name": "ACME", "companyName": "ACME GmbH", "type": {"value": "CUSTOMER"}},
				{"id": "tp-2", "number": "10002", "name": "Globex"}
			]}`)
		case partnersURL + "/tp-1":
			_, _ = io.WriteString(w, `{"id": "tp-1", "number": "10001", "name": "ACME"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	partners, err := client.ListTradingPartners(ctx, 0)
	require.NoError(t, err)
	require.Len(t, partners, 2)
	assert.Equal(t, "ACME GmbH", partners[0].DisplayName())
	assert.Equal(t, "CUSTOMER", partners[0].Type)
	assert.Equal(t, "Globex", partners[1].DisplayName())

	id, err := client.ResolveNumberToID(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, "tp-1", id)

	_, err = client.TradingPartnerByNumber(ctx, "99999")
	assert.ErrorIs(t, err, alphaflow.ErrTradingPartnerNotFound)

	partner, err := client.TradingPartnerByID(ctx, "tp-1")
	require.NoError(t, err)
	assert.Equal(t, "ACME", partner.Name)

	_, err = client.TradingPartnerByID(ctx, "missing")
	assert.ErrorIs(t, err, alphaflow.ErrTradingPartnerNotFound)

	matches, err := client.SearchTradingPartners(ctx, "gmbh")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tp-1", matches[0].ID)
}
