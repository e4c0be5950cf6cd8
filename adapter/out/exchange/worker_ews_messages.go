package exchange

import "encoding/xml"

const (
	nsSoap     = "http://schemas.xmlsoap.org/soap/envelope/"
	nsTypes    = "http://schemas.microsoft.com/exchange/services/2006/types"
	nsMessages = "http://schemas.microsoft.com/exchange/services/2006/messages"
)

// =============================================================================
// Request Envelope
// =============================================================================

type envelope struct {
	XMLName   xml.Name `xml:"soap:Envelope"`
	XMLNSSoap string   `xml:"xmlns:soap,attr"`
	XMLNST    string   `xml:"xmlns:t,attr"`
	XMLNSM    string   `xml:"xmlns:m,attr"`
	Header    header   `xml:"soap:Header"`
	Body      body     `xml:"soap:Body"`
}

type header struct {
	RequestServerVersion  requestServerVersion   `xml:"t:RequestServerVersion"`
	ExchangeImpersonation *exchangeImpersonation `xml:"t:ExchangeImpersonation,omitempty"`
}

type requestServerVersion struct {
	Version string `xml:"Version,attr"`
}

type exchangeImpersonation struct {
	ConnectingSID connectingSID `xml:"t:ConnectingSID"`
}

type connectingSID struct {
	SmtpAddress string `xml:"t:SmtpAddress"`
}

type body struct {
	GetFolder *getFolderRequest `xml:"m:GetFolder,omitempty"`
	FindItem  *findItemRequest  `xml:"m:FindItem,omitempty"`
	GetItem   *getItemRequest   `xml:"m:GetItem,omitempty"`
}

// =============================================================================
// GetFolder
// =============================================================================

type getFolderRequest struct {
	FolderShape folderShape `xml:"m:FolderShape"`
	FolderIds   folderIds   `xml:"m:FolderIds"`
}

type folderShape struct {
	BaseShape string `xml:"t:BaseShape"`
}

type folderIds struct {
	DistinguishedFolderID *distinguishedFolderID `xml:"t:DistinguishedFolderId,omitempty"`
	FolderID              *folderID              `xml:"t:FolderId,omitempty"`
}

type distinguishedFolderID struct {
	ID      string        `xml:"Id,attr"`
	Mailbox *emailMailbox `xml:"t:Mailbox,omitempty"`
}

type emailMailbox struct {
	EmailAddress string `xml:"t:EmailAddress"`
}

type folderID struct {
	ID        string `xml:"Id,attr"`
	ChangeKey string `xml:"ChangeKey,attr,omitempty"`
}

// =============================================================================
// FindItem
// =============================================================================

type findItemRequest struct {
	Traversal           string              `xml:"Traversal,attr"`
	ItemShape           itemShape           `xml:"m:ItemShape"`
	IndexedPageItemView indexedPageItemView `xml:"m:IndexedPageItemView"`
	Restriction         *restriction        `xml:"m:Restriction,omitempty"`
	ParentFolderIds     folderIds           `xml:"m:ParentFolderIds"`
}

type itemShape struct {
	BaseShape            string                `xml:"t:BaseShape"`
	BodyType             string                `xml:"t:BodyType,omitempty"`
	AdditionalProperties *additionalProperties `xml:"t:AdditionalProperties,omitempty"`
}

type additionalProperties struct {
	FieldURI []fieldURI `xml:"t:FieldURI"`
}

type fieldURI struct {
	FieldURI string `xml:"FieldURI,attr"`
}

type indexedPageItemView struct {
	MaxEntriesReturned int    `xml:"MaxEntriesReturned,attr"`
	Offset             int    `xml:"Offset,attr"`
	BasePoint          string `xml:"BasePoint,attr"`
}

type restriction struct {
	And andExpression `xml:"t:And"`
}

type andExpression struct {
	Conditions []comparison
}

// comparison is IsLessThan / IsGreaterThan; XMLName carries the operator.
type comparison struct {
	XMLName  xml.Name
	FieldURI fieldURI         `xml:"t:FieldURI"`
	Constant fieldURIConstant `xml:"t:FieldURIOrConstant"`
}

type fieldURIConstant struct {
	Constant constant `xml:"t:Constant"`
}

type constant struct {
	Value string `xml:"Value,attr"`
}

// =============================================================================
// GetItem
// =============================================================================

type getItemRequest struct {
	ItemShape itemShape `xml:"m:ItemShape"`
	ItemIds   itemIds   `xml:"m:ItemIds"`
}

type itemIds struct {
	ItemID []itemID `xml:"t:ItemId"`
}

type itemID struct {
	ID        string `xml:"Id,attr"`
	ChangeKey string `xml:"ChangeKey,attr,omitempty"`
}

// =============================================================================
// Responses
// =============================================================================

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault             *soapFault         `xml:"Fault"`
	GetFolderResponse *getFolderResponse `xml:"GetFolderResponse"`
	FindItemResponse  *findItemResponse  `xml:"FindItemResponse"`
	GetItemResponse   *getItemResponse   `xml:"GetItemResponse"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type responseMessage struct {
	ResponseClass string `xml:"ResponseClass,attr"`
	MessageText   string `xml:"MessageText"`
	ResponseCode  string `xml:"ResponseCode"`
}

type getFolderResponse struct {
	Messages []getFolderResponseMessage `xml:"ResponseMessages>GetFolderResponseMessage"`
}

type getFolderResponseMessage struct {
	responseMessage
	Folders []responseFolder `xml:"Folders>CalendarFolder"`
}

type responseFolder struct {
	FolderID    folderID `xml:"FolderId"`
	DisplayName string   `xml:"DisplayName"`
}

type findItemResponse struct {
	Messages []findItemResponseMessage `xml:"ResponseMessages>FindItemResponseMessage"`
}

type findItemResponseMessage struct {
	responseMessage
	RootFolder rootFolder `xml:"RootFolder"`
}

type rootFolder struct {
	IndexedPagingOffset     int            `xml:"IndexedPagingOffset,attr"`
	TotalItemsInView        int            `xml:"TotalItemsInView,attr"`
	IncludesLastItemInRange bool           `xml:"IncludesLastItemInRange,attr"`
	Items                   []calendarItem `xml:"Items>CalendarItem"`
}

type calendarItem struct {
	ItemID        itemID `xml:"ItemId"`
	Subject       string `xml:"Subject"`
	Start         string `xml:"Start"`
	End           string `xml:"End"`
	Location      string `xml:"Location"`
	IsAllDayEvent bool   `xml:"IsAllDayEvent"`
	UID           string `xml:"UID"`
	TextBody      string `xml:"TextBody"`
}

type getItemResponse struct {
	Messages []getItemResponseMessage `xml:"ResponseMessages>GetItemResponseMessage"`
}

type getItemResponseMessage struct {
	responseMessage
	Items []calendarItem `xml:"Items>CalendarItem"`
}
