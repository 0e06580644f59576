package alphaflow

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"invoicer/internal/invoice"
)

const (
	defaultInvoiceType   = "INVOICE"
	statusNew            = "NEW"
	paidStatusUnpaid     = "UNPAID"
	unknownPartnerTitle  = "Unbekannt"
	initialReminderLevel = "0"
)

var defaultVATRate = decimal.NewFromInt(19)

// InvoicePayload is the outgoing invoice as the Alphaflow create endpoint
// expects it. Pointer fields that are always nil serialize as null.
type InvoicePayload struct {
	DMSDocumentType     *string `json:"dmsDocumentType"`
	DMSDocumentTypeName *string `json:"dmsDocumentTypeName"`
	ImportCode          *string `json:"importCode"`
	Sealed              bool    `json:"sealed"`
	CreatedAt           *string `json:"createdAt"`
	Creator             *string `json:"creator"`
	UpdatedBy           *string `json:"updatedBy"`
	UpdatedAt           *string `json:"updatedAt"`
	DeletedAt           *string `json:"deletedAt"`
	DraftedAt           *string `json:"draftedAt"`
	HasDocuments        bool    `json:"hasDocuments"`
	HasComments         bool    `json:"hasComments"`
	DisplayTitle        string  `json:"displayTitle"`
	OptionTitle         string  `json:"optionTitle"`

	AccessControlListRead   *string `json:"accessControlListRead"`
	AccessControlListWrite  *string `json:"accessControlListWrite"`
	AccessControlListDelete *string `json:"accessControlListDelete"`

	Workflow                        *string `json:"workflow"`
	CurrentWorkflowResponsibles     string  `json:"currentWorkflowResponsibles"`
	CurrentWorkflowResponsibleNames *string `json:"currentWorkflowResponsibleNames"`
	WorkflowFinishedAt              *string `json:"workflowFinishedAt"`
	WorkflowStatus                  *string `json:"workflowStatus"`
	SqueezeDocumentIDs              *string `json:"squeezeDocumentIDs"`

	Type                     ValueRef        `json:"type"`
	TradingPartner           IDRef           `json:"tradingPartner"`
	Organization             IDRef           `json:"organization"`
	ResponsibleAdministrator IDRef           `json:"responsibleAdministrator"`
	CreditInvoice            json.RawMessage `json:"creditInvoice"`
	Contract                 json.RawMessage `json:"contract"`
	Status                   ValueRef        `json:"status"`
	PaidStatus               ValueRef        `json:"paidStatus"`
	Overdue                  bool            `json:"overdue"`
	SendInvoice              bool            `json:"sendInvoice"`
	TradingPartnerContact    json.RawMessage `json:"tradingPartnerContact"`
	Currency                 ValueRef        `json:"currency"`
	CustomFields             map[string]any  `json:"customFields"`
	InvoiceItems             []ItemPayload   `json:"invoiceItems"`

	ID               string `json:"id"`
	ReminderLevel    string `json:"reminderLevel"`
	ServiceDateStart string `json:"serviceDateStart"`
	ServiceDateEnd   string `json:"serviceDateEnd"`
	Number           string `json:"number"`
	Date             string `json:"date"`
	FirstInvoiceSend string `json:"firstInvoiceSend"`
	PaymentDate      string `json:"paymentDate"`
	BuyerReference   string `json:"buyerReference"`

	TotalNetAmount float64 `json:"totalNetAmount"`
	TotalVatAmount float64 `json:"totalVatAmount"`
	TotalAmount    float64 `json:"totalAmount"`

	NetAmount1   float64 `json:"netAmount1"`
	VatRate1     float64 `json:"vatRate1"`
	VatAmount1   float64 `json:"vatAmount1"`
	TotalAmount1 float64 `json:"totalAmount1"`
	NetAmount2   string  `json:"netAmount2"`
	VatRate2     string  `json:"vatRate2"`
	VatAmount2   string  `json:"vatAmount2"`
	TotalAmount2 string  `json:"totalAmount2"`
	NetAmount3   string  `json:"netAmount3"`
	VatRate3     string  `json:"vatRate3"`
	VatAmount3   string  `json:"vatAmount3"`
	TotalAmount3 string  `json:"totalAmount3"`

	DaysDue int    `json:"daysDue"`
	DueDate string `json:"dueDate"`

	DiscountDays1 string `json:"discountDays1"`
	DiscountRate1 string `json:"discountRate1"`
	DiscountDate1 string `json:"discountDate1"`
	DiscountDays2 string `json:"discountDays2"`
	DiscountRate2 string `json:"discountRate2"`
	DiscountDate2 string `json:"discountDate2"`

	AccountingText string `json:"accountingText"`
	Remarks        string `json:"remarks"`
}

// ValueRef is an Alphaflow enum value.
type ValueRef struct {
	Name  *string `json:"name"`
	Value string  `json:"value"`
}

// IDRef references another Alphaflow record.
type IDRef struct {
	ID string `json:"id"`
}

// ItemPayload is one entry of invoiceItems.
type ItemPayload struct {
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitOfMeasure  string  `json:"unitOfMeasure"`
	UnitPrice      float64 `json:"unitPrice"`
	Discount       float64 `json:"discount"`
	TotalNetAmount float64 `json:"totalNetAmount"`
	VatRate        float64 `json:"vatRate"`
	Data           *string `json:"data"`
	Group          *string `json:"group"`
	ID             string  `json:"id"`
}

// BuildInvoicePayload translates a document into the create payload. It is
// the only place that knows the external schema.
func BuildInvoicePayload(doc *invoice.Document) *InvoicePayload {
	partnerTitle := doc.TradingPartnerName
	if partnerTitle == "" {
		partnerTitle = unknownPartnerTitle
	}
	title := partnerTitle + " ()"

	invoiceType := doc.InvoiceTypeValue
	if invoiceType == "" {
		invoiceType = defaultInvoiceType
	}

	items := make([]ItemPayload, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, buildItemPayload(item))
	}

	slot := invoice.VATGroup{Rate: defaultVATRate, Net: decimal.Zero, VAT: decimal.Zero, Total: decimal.Zero}
	if groups := doc.VATBreakdown(); len(groups) > 0 {
		slot = groups[0]
	}

	return &InvoicePayload{
		DisplayTitle:                title,
		OptionTitle:                 title,
		CurrentWorkflowResponsibles: "",

		Type:                     ValueRef{Value: invoiceType},
		TradingPartner:           IDRef{ID: doc.TradingPartnerID},
		Organization:             IDRef{ID: doc.OrganizationID},
		ResponsibleAdministrator: IDRef{ID: doc.ResponsibleAdministratorID},
		CreditInvoice:            EmptyCreditInvoice,
		Contract:                 EmptyContract,
		Status:                   ValueRef{Value: statusNew},
		PaidStatus:               ValueRef{Value: paidStatusUnpaid},
		TradingPartnerContact:    EmptyTradingPartnerContact,
		Currency:                 ValueRef{Value: doc.Currency},
		CustomFields:             map[string]any{},
		InvoiceItems:             items,

		ReminderLevel:    initialReminderLevel,
		ServiceDateStart: doc.ServiceDateStart.Format(invoice.DateTimeLayout),
		ServiceDateEnd:   doc.ServiceDateEnd.Format(invoice.DateTimeLayout),
		Date:             doc.IssueDate.Format(invoice.DateTimeLayout),
		BuyerReference:   doc.BuyerReference,

		TotalNetAmount: doc.TotalNetAmount().InexactFloat64(),
		TotalVatAmount: doc.TotalVATAmount().InexactFloat64(),
		TotalAmount:    doc.TotalAmount().InexactFloat64(),

		NetAmount1:   slot.Net.Round(2).InexactFloat64(),
		VatRate1:     slot.Rate.InexactFloat64(),
		VatAmount1:   slot.VAT.Round(2).InexactFloat64(),
		TotalAmount1: slot.Total.Round(2).InexactFloat64(),

		DaysDue: doc.DaysDue,
		DueDate: doc.DueDate().Format(invoice.DateTimeLayout),

		AccountingText: doc.AccountingText,
		Remarks:        doc.Remarks,
	}
}

func buildItemPayload(item invoice.LineItem) ItemPayload {
	return ItemPayload{
		Number:         item.Number,
		Title:          item.Title,
		Description:    item.Description,
		Quantity:       item.Quantity.InexactFloat64(),
		UnitOfMeasure:  item.UnitOfMeasure,
		UnitPrice:      item.UnitPrice.InexactFloat64(),
		Discount:       item.Discount.InexactFloat64(),
		TotalNetAmount: item.NetAmount().InexactFloat64(),
		VatRate:        item.VATRate.InexactFloat64(),
		ID:             ItemID(item),
	}
}

// ItemID derives a stable item id from title and quantity.
func ItemID(item invoice.LineItem) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(item.Title+item.Quantity.String())).String()
}
