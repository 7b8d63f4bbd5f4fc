package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ehopn/invoice_go_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendWelcome 发送欢迎邮件
func (s *Service) SendWelcome(to, name string) error {
	subject := "Welcome to EHopN Invoice Manager"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Welcome aboard!</h2>
        <p>Hi %s,</p>
        <p>Thanks for signing up for EHopN Invoice Manager.</p>
        <p>With your account you can:</p>
        <ul>
            <li>Upload invoices and let AI extract the details</li>
            <li>Keep all your vendors, amounts and tax IDs in one place</li>
            <li>Upgrade anytime for unlimited uploads</li>
        </ul>
        <p>Get started by uploading your first invoice!</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, name)

	return s.sendHTML(to, subject, body)
}

// SendPasswordReset 发送密码重置邮件
func (s *Service) SendPasswordReset(to, resetLink string) error {
	subject := "Reset your password - EHopN Invoice Manager"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Password reset</h2>
        <p>Hi,</p>
        <p>We received a request to reset your password. Click the button below to choose a new one:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
        </div>
        <p>Or copy this link into your browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">%s</p>
        <p>The link expires in 30 minutes.</p>
        <p>If you did not request a password reset, you can safely ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, resetLink, resetLink)

	return s.sendHTML(to, subject, body)
}

// SendPaymentConfirmation 发送支付成功邮件
func (s *Service) SendPaymentConfirmation(to, plan string) error {
	subject := "Payment confirmed - EHopN Invoice Manager"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Payment confirmed</h2>
        <p>Hi,</p>
        <p>Your payment went through and your account has been upgraded to the <strong>%s</strong> plan.</p>
        <p>Enjoy unlimited invoice uploads and all the extra features of your new plan.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, plan)

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
