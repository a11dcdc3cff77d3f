// Package notify emails reconciliation results to a distribution list.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// Notifier delivers a finished run somewhere
type Notifier interface {
	Notify(ctx context.Context, summary *models.Summary, reportPath string) error
}

// Config holds the SMTP settings
type Config struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	From         string   `mapstructure:"from"`
	To           []string `mapstructure:"to"`
	AttachReport bool     `mapstructure:"attach_report"`
}

// DefaultConfig returns the submission port with the report attached
func DefaultConfig() *Config {
	return &Config{
		Port:         587,
		AttachReport: true,
	}
}

// Validate checks that a message can be addressed and delivered
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("smtp host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid smtp port: %d", c.Port)
	}
	if strings.TrimSpace(c.From) == "" {
		return fmt.Errorf("sender address cannot be empty")
	}
	if len(c.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// Addr is host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier sends a plain text summary over SMTP
type EmailNotifier struct {
	config    *Config
	formatter *reporter.Formatter
	logger    logger.Logger
	send      sendFunc
}

// NewEmailNotifier validates config and builds a notifier
func NewEmailNotifier(config *Config, log logger.Logger) (*EmailNotifier, error) {
	if config == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "notify", nil, nil)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "smtp.host", config.Host, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &EmailNotifier{
		config:    config,
		formatter: reporter.NewFormatter(),
		logger:    log.WithComponent("notify"),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}, nil
}

// Subject summarizes the run in one line
func (n *EmailNotifier) Subject(summary *models.Summary) string {
	return fmt.Sprintf("Claims reconciliation: %s claims, %s overpaid, %s underpaid",
		n.formatter.Count(summary.TotalClaims),
		n.formatter.Count(summary.Overpaid),
		n.formatter.Count(summary.Underpaid))
}

// Body renders the text part of the message
func (n *EmailNotifier) Body(summary *models.Summary, reportPath string) string {
	f := n.formatter
	var b strings.Builder
	b.WriteString("Healthcare claims reconciliation finished.\n\n")
	fmt.Fprintf(&b, "Total claims:     %s\n", f.Count(summary.TotalClaims))
	fmt.Fprintf(&b, "Balanced:         %s (%s%%)\n", f.Count(summary.Balanced), f.Percent(summary.BalancedPct))
	fmt.Fprintf(&b, "Overpaid:         %s (%s%%)\n", f.Count(summary.Overpaid), f.Percent(summary.OverpaidPct))
	fmt.Fprintf(&b, "Underpaid:        %s (%s%%)\n", f.Count(summary.Underpaid), f.Percent(summary.UnderpaidPct))
	fmt.Fprintf(&b, "Total overpaid:   %s\n", f.Currency(summary.TotalOverpaidAmount))
	fmt.Fprintf(&b, "Total underpaid:  %s\n", f.Currency(summary.TotalUnderpaidAmount))

	if len(summary.TopProviders) > 0 {
		b.WriteString("\nTop providers by total variance:\n")
		for i, p := range summary.TopProviders {
			fmt.Fprintf(&b, "  %d. %s  %s (%s claims)\n", i+1, p.ProviderName, f.Currency(p.TotalVariance), f.Count(p.Count))
		}
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "\nFull report: %s\n", reportPath)
	}
	return b.String()
}

// Message builds the email without sending it
func (n *EmailNotifier) Message(summary *models.Summary, reportPath string) (*email.Email, error) {
	if summary == nil {
		return nil, errors.New(errors.CategoryInternal, errors.CodeUnexpectedError, "summary cannot be nil")
	}

	e := email.NewEmail()
	e.From = n.config.From
	e.To = append([]string(nil), n.config.To...)
	e.Subject = n.Subject(summary)
	e.Text = []byte(n.Body(summary, reportPath))

	if n.config.AttachReport && reportPath != "" {
		if _, err := e.AttachFile(reportPath); err != nil {
			return nil, errors.DataLoadError(errors.CodeFileNotFound, reportPath, err)
		}
	}
	return e, nil
}

// Notify sends the summary to every configured recipient
func (n *EmailNotifier) Notify(ctx context.Context, summary *models.Summary, reportPath string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, errors.CodeCancelled, "notification cancelled")
	}

	e, err := n.Message(summary, reportPath)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := n.send(e, n.config.Addr(), auth); err != nil {
		n.logger.WithError(err).WithField("recipients", len(e.To)).Error("Failed to send reconciliation email")
		return errors.NetworkError(errors.CodeServiceUnavailable, n.config.Addr(), err)
	}

	n.logger.WithFields(logger.Fields{
		"recipients": len(e.To),
		"subject":    e.Subject,
	}).Info("Reconciliation email sent")
	return nil
}
