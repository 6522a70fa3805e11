// Package email sends Tor Weather notification mail over SMTP. All mail is
// plain text, addressed from the weather operations mailbox, with the
// shared "[Tor Weather]" subject header.
package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"torweather/internal/shared/logger"
)

const subjectHeader = "[Tor Weather] "

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	BaseURL     string // Base URL for email links (e.g., "http://localhost:8080")
}

// Service is the outbound mail port used by the application layer.
type Service interface {
	SendConfirmation(to, routerName, confirmAuth string) error
	SendConfirmed(to, routerName, unsubsAuth, prefAuth string) error
	SendNodeDown(to, routerName string, graceHours int, unsubsAuth, prefAuth string) error
	SendVersion(to, routerName, version string, unsubsAuth, prefAuth string) error
	SendLowBandwidth(to, routerName string, observedKBs, thresholdKBs int64, unsubsAuth, prefAuth string) error
	SendTShirt(to, routerName string, avgKBs float64, exit bool, unsubsAuth, prefAuth string) error
	SendWelcome(to, routerName string, exit bool) error
}

type SMTPEmailService struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewSMTPEmailService(config SMTPConfig) *SMTPEmailService {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPEmailService{
		config: config,
		dialer: dialer,
		logger: logger.NewLogger().With("component", "email.smtp"),
	}
}

func (s *SMTPEmailService) confirmURL(confirmAuth string) string {
	return fmt.Sprintf("%s/confirm/%s", s.config.BaseURL, confirmAuth)
}

func (s *SMTPEmailService) unsubscribeURL(unsubsAuth string) string {
	return fmt.Sprintf("%s/unsubscribe/%s", s.config.BaseURL, unsubsAuth)
}

func (s *SMTPEmailService) preferencesURL(prefAuth string) string {
	return fmt.Sprintf("%s/preferences/%s", s.config.BaseURL, prefAuth)
}

// footer is appended to every notification so subscribers can always
// unsubscribe or change their settings without digging up old mail.
func (s *SMTPEmailService) footer(unsubsAuth, prefAuth string) string {
	return fmt.Sprintf("\n\nYou can unsubscribe from Tor Weather Reports at any time by "+
		"visiting the following url:\n\n%s\n\nor change your Tor Weather "+
		"notification preferences here:\n\n%s",
		s.unsubscribeURL(unsubsAuth), s.preferencesURL(prefAuth))
}

// SendConfirmation sends the double-opt-in mail with the confirmation link.
func (s *SMTPEmailService) SendConfirmation(to, routerName, confirmAuth string) error {
	subject := "Confirmation Needed"
	body := fmt.Sprintf("Dear human,\n\n"+
		"This is the Tor Weather Report system.\n\n"+
		"Someone (possibly you) has requested that status monitoring "+
		"information about a Tor node %s be sent to this email "+
		"address.\n\nIf you wish to confirm this request, please visit the "+
		"following url:\n\n%s\n\nIf you do not wish to receive Tor Weather "+
		"Reports, you don't need to do anything. You shouldn't hear from us "+
		"again.",
		routerName, s.confirmURL(confirmAuth))

	return s.sendEmail(to, subject, body)
}

// SendConfirmed acknowledges a successful confirmation.
func (s *SMTPEmailService) SendConfirmed(to, routerName, unsubsAuth, prefAuth string) error {
	subject := "Confirmation Successful"
	body := fmt.Sprintf("Dear human,\n\n"+
		"This is the Tor Weather Report system.\n\n"+
		"You successfully subscribed for Tor Weather Reports about a Tor "+
		"node %s.",
		routerName) + s.footer(unsubsAuth, prefAuth)

	return s.sendEmail(to, subject, body)
}

// SendNodeDown reports that the watched relay has been unreachable for
// longer than the subscriber's grace period.
func (s *SMTPEmailService) SendNodeDown(to, routerName string, graceHours int, unsubsAuth, prefAuth string) error {
	subject := "Node Down!"
	body := fmt.Sprintf("This is a Tor Weather Report.\n\n"+
		"It appears that the Tor node %s you've been observing has been "+
		"uncontactable through the Tor network for at least %d hour(s). "+
		"You may wish to look at it to see why.",
		routerName, graceHours) + s.footer(unsubsAuth, prefAuth)

	return s.sendEmail(to, subject, body)
}

// SendVersion reports that the relay runs an out-of-date Tor version.
func (s *SMTPEmailService) SendVersion(to, routerName, version string, unsubsAuth, prefAuth string) error {
	subject := "Node Out of Date!"
	body := fmt.Sprintf("This is a Tor Weather Report.\n\n"+
		"It appears that the Tor node %s you've been observing is running "+
		"an out of date version of Tor (%s). You can download the latest "+
		"version of Tor at %s.",
		routerName, version, "https://www.torproject.org/download") + s.footer(unsubsAuth, prefAuth)

	return s.sendEmail(to, subject, body)
}

// SendLowBandwidth reports observed bandwidth below the subscriber's threshold.
func (s *SMTPEmailService) SendLowBandwidth(to, routerName string, observedKBs, thresholdKBs int64, unsubsAuth, prefAuth string) error {
	subject := "Low Bandwidth!"
	body := fmt.Sprintf("This is a Tor Weather Report.\n\n"+
		"The observed bandwidth capacity of the Tor node %s you've been "+
		"observing has fallen to %d KB/s, below your threshold of %d KB/s. "+
		"You may wish to look at it to see why.",
		routerName, observedKBs, thresholdKBs) + s.footer(unsubsAuth, prefAuth)

	return s.sendEmail(to, subject, body)
}

// SendTShirt reports that the relay has earned its operator a T-shirt.
func (s *SMTPEmailService) SendTShirt(to, routerName string, avgKBs float64, exit bool, unsubsAuth, prefAuth string) error {
	nodeType := "a node"
	if exit {
		nodeType = "an exit node"
	}

	subject := "Congratulations! Have a T-shirt!"
	body := fmt.Sprintf("This is a Tor Weather Report.\n\n"+
		"Congratulations! The node %s you've been observing has been %s "+
		"running for 61 days with an average bandwidth of %.0f KB/s, "+
		"which makes its operator eligible to receive an official Tor "+
		"T-shirt! If you're interested in claiming your shirt, please visit "+
		"https://www.torproject.org/getinvolved/tshirt.html for more "+
		"information.\n\nThank you for your contribution to the Tor network!",
		routerName, nodeType, avgKBs) + s.footer(unsubsAuth, prefAuth)

	return s.sendEmail(to, subject, body)
}

// SendWelcome greets a new stable relay's operator and plugs Tor Weather.
func (s *SMTPEmailService) SendWelcome(to, routerName string, exit bool) error {
	legalNote := ""
	if exit {
		legalNote = "\n\nAs your node is an exit relay, you might be interested in Tor's " +
			"legal FAQ for relay operators " +
			"(https://www.torproject.org/eff/tor-legal-faq.html) and Mike Perry's " +
			"blog post on running an exit node " +
			"(https://blog.torproject.org/running-exit-node)."
	}

	subject := "Welcome to Tor!"
	body := fmt.Sprintf("Hello and welcome to Tor!\n\n"+
		"We've noticed that your Tor node %s has been running long enough "+
		"to be flagged as \"stable\". First, we would like to thank you for your "+
		"contribution to the Tor network! As Tor grows, we require ever more "+
		"nodes to improve browsing speed and reliability for our users. Your "+
		"node is helping to serve the millions of Tor clients out there.%s\n\n"+
		"For more information about Tor Weather and to subscribe to "+
		"notifications about your node, visit %s.\n\n"+
		"Thank you again for your contribution to the Tor network! We hope "+
		"that your node is running well.\n\nDisclaimer: If you have no idea "+
		"why you're receiving this email, we sincerely apologize! You "+
		"shouldn't hear from us again.",
		routerName, legalNote, s.config.BaseURL)

	return s.sendEmail(to, subject, body)
}

func (s *SMTPEmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectHeader+subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Errorw("failed to send email", "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
