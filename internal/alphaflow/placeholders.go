package alphaflow

import "encoding/json"

// Alphaflow expects the embedded credit invoice, contract and contact
// documents to be present even when they are unused. These are the empty
// shapes the web client sends.
var (
	// EmptyCreditInvoice is sent as creditInvoice.
	EmptyCreditInvoice = json.RawMessage(`{
		"dmsDocumentType": null, "dmsDocumentTypeName": null, "importCode": null, "sealed": false,
		"createdAt": null, "creator": null, "updatedBy": null, "updatedAt": null, "deletedAt": null, "draftedAt": null,
		"hasDocuments": false, "hasComments": false, "displayTitle": null, "optionTitle": null,
		"accessControlListRead": null, "accessControlListWrite": null, "accessControlListDelete": null,
		"workflow": null, "currentWorkflowResponsibles": "", "currentWorkflowResponsibleNames": null,
		"workflowFinishedAt": null, "workflowStatus": null, "squeezeDocumentIDs": null,
		"type": null, "number": null, "tradingPartner": null, "organization": null, "responsibleAdministrator": null,
		"creditInvoice": null, "contract": null, "date": null, "remarks": null,
		"totalNetAmount": null, "totalVatAmount": null, "daysDue": null, "status": null,
		"paidStatus": {"value": null, "name": null},
		"dueDate": null, "overdue": false, "totalAmount": null, "reminderLevel": 0, "sendInvoice": false,
		"firstInvoiceSend": null, "paymentDate": null, "serviceDateStart": null, "serviceDateEnd": null,
		"buyerReference": null, "tradingPartnerContact": null,
		"netAmount1": null, "netAmount2": null, "netAmount3": null,
		"vatRate1": null, "vatRate2": null, "vatRate3": null,
		"vatAmount1": null, "vatAmount2": null, "vatAmount3": null,
		"totalAmount1": null, "totalAmount2": null, "totalAmount3": null,
		"discountDays1": null, "discountDays2": null, "discountRate1": null, "discountRate2": null,
		"discountDate1": null, "discountDate2": null,
		"accountingText": null, "currency": null, "customFields": null, "invoiceItems": [], "id": null
	}`)

	// EmptyContract is sent as contract.
	EmptyContract = json.RawMessage(`{
		"dmsDocumentType": null, "dmsDocumentTypeName": null, "importCode": null, "sealed": false,
		"createdAt": null, "creator": null, "updatedBy": null, "updatedAt": null, "deletedAt": null, "draftedAt": null,
		"hasComments": false, "displayTitle": "null (null)", "optionTitle": "null (null)",
		"accessControlListRead": null, "accessControlListWrite": null, "accessControlListDelete": null,
		"workflow": null, "currentWorkflowResponsibles": "", "currentWorkflowResponsibleNames": null,
		"workflowFinishedAt": null, "workflowStatus": null, "squeezeDocumentIDs": null,
		"subject": null, "tradingPartner": null, "contact": null,
		"ownRole": {"value": null, "name": null},
		"organization": null, "contractType": null,
		"contractStatus": {"value": null, "name": null},
		"internalNumber": null, "externalNumber": null, "responsible": null,
		"frameContract": null, "relatedFrameContract": null, "ownSignature": null, "partnerSignature": null,
		"startDate": null, "endDate": null, "duration": null, "terminationReminder": "0",
		"renewalDate": null, "followingContractPeriod": null, "renewalReminder": "0", "terminationValue": null,
		"terminationUnit": {"value": null, "name": null},
		"terminationCalendarEvent": {"value": null, "name": null},
		"firstTermination": null, "nextTermination": null, "terminationDate": null,
		"terminationBy": {"value": null, "name": null},
		"terminationRemark": null, "cancellationReminder": "0", "overdueTasks": 0,
		"title": null, "typeShortName": null, "additionalAccessGranted": "", "additionalAccessDenied": "",
		"customFields": null,
		"automaticRenewal": {"value": null, "name": null},
		"riskAnalysis": null, "hasDocuments": false, "id": null
	}`)

	// EmptyTradingPartnerContact is sent as tradingPartnerContact.
	EmptyTradingPartnerContact = json.RawMessage(`{
		"dmsDocumentType": null, "dmsDocumentTypeName": null, "importCode": null, "sealed": false,
		"createdAt": null, "creator": null, "updatedBy": null, "updatedAt": null, "deletedAt": null, "draftedAt": null,
		"hasDocuments": false, "hasComments": false, "displayTitle": "", "optionTitle": "",
		"accessControlListRead": null, "accessControlListWrite": null, "accessControlListDelete": null,
		"organization": null, "number": null, "name": null, "salutation": null, "title": null, "firstName": null,
		"tradingPartner": null, "jobTitle": null, "division": null, "type": null, "description": null,
		"phone": null, "mobilePhone": null, "fax": null, "email": null,
		"street": null, "zip": null, "city": null, "country": null, "region": null,
		"postboxZip": null, "postbox": null, "addressAnnex": null, "displayName": "",
		"active": {"value": null, "name": null},
		"archived": null, "id": null
	}`)
)
