package notify

import (
	"fmt"
	"strings"
)

const (
	invoiceUploadedText = "📎【請求書アップロード】ファイルが送信されました"
	invoiceHeading      = "📎 *請求書アップロード*"
	openRecordLabel     = "🔗 レコードを開く"
	unknownUser         = "不明ユーザー"
	unknownValue        = "不明"
	noDate              = "-"
)

// InvoiceUpload describes an uploaded invoice for the chat notification.
type InvoiceUpload struct {
	UserName    string
	CompanyName string
	PlannedDate string
	FileName    string
	RecordURL   string
}

// InvoiceUploadMessage renders the chat message for an uploaded invoice.
// Missing values are shown as placeholders.
func InvoiceUploadMessage(in InvoiceUpload) Message {
	lines := []string{
		invoiceHeading,
		"*送信者*: " + orDefault(in.UserName, unknownUser),
		"*会社名*: " + orDefault(in.CompanyName, unknownValue),
		"*入荷予定日*: " + orDefault(in.PlannedDate, noDate),
		"*ファイル名*: " + orDefault(in.FileName, unknownValue),
	}
	msg := Message{
		Text:   invoiceUploadedText,
		Blocks: []Block{SectionBlock(strings.Join(lines, "\n"))},
	}
	if in.RecordURL != "" {
		msg.Blocks = append(msg.Blocks, LinkButtonBlock(openRecordLabel, in.RecordURL))
	}
	return msg
}

// CancelRequestText renders the push message sent when a user cancels a
// history entry.
func CancelRequestText(companyID, recordID, uid string) string {
	return fmt.Sprintf("【取消依頼】\ncompanyId: %s\nrecordId: %s\n実行UID: %s", companyID, recordID, uid)
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
