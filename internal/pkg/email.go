package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

// Enabled 未配置 Host 时不发邮件
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(m)
}

// RSVPConfirmationHTML 活动报名确认邮件正文
func RSVPConfirmationHTML(name, title, location string, date time.Time) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>You're going to <b>%s</b>.</p><p>%s at %s</p>`,
		html.EscapeString(name),
		html.EscapeString(title),
		date.Format("Mon, Jan 2 2006 15:04"),
		html.EscapeString(location),
	)
}
