package infrastructure

import (
	"context"

	"returnremind/internal/pkg/httpclient"
	"returnremind/internal/service/notification/domain"
)

// HTTPMailer 通过 SendGrid v3 兼容的 mail/send 接口发送邮件
type HTTPMailer struct {
	client   *httpclient.Client
	endpoint string
	apiKey   string
	from     string
}

func NewHTTPMailer(client *httpclient.Client, endpoint, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{client: client, endpoint: endpoint, apiKey: apiKey, from: from}
}

type mailAddress struct {
	Email string `json:"email"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

func (m *HTTPMailer) Send(ctx context.Context, mail domain.Email) error {
	req := mailRequest{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: mail.To}}}},
		From:             mailAddress{Email: m.from},
		Subject:          mail.Subject,
		Content:          []mailContent{{Type: "text/plain", Value: mail.Body}},
	}
	headers := map[string]string{}
	if m.apiKey != "" {
		headers["Authorization"] = "Bearer " + m.apiKey
	}
	return m.client.PostJSON(ctx, m.endpoint, headers, req)
}
