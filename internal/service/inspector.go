package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

var ErrNoExpiryDate = errors.New("no expiration date in whois record")

// WhoisResult is a registry-side view of a domain, used to cross-check the
// expiry date the reseller backend stores.
type WhoisResult struct {
	Domain      string    `json:"domain"`
	RootDomain  string    `json:"root_domain"`
	Registrar   string    `json:"registrar,omitempty"`
	Status      []string  `json:"status,omitempty"`
	NameServers []string  `json:"name_servers,omitempty"`
	ExpiryDate  time.Time `json:"expiry_date"`
	DaysLeft    int       `json:"days_left"`
}

// InspectorService answers on-demand WHOIS lookups.
type InspectorService struct {
	lookup func(domain string) (string, error)
	parse  func(raw string) (whoisparser.WhoisInfo, error)
	clock  func() time.Time
}

func NewInspectorService() *InspectorService {
	return &InspectorService{
		lookup: func(domain string) (string, error) { return whois.Whois(domain) },
		parse:  whoisparser.Parse,
		clock:  time.Now,
	}
}

// Inspect queries WHOIS for the registrable part of name.
func (s *InspectorService) Inspect(ctx context.Context, name string) (WhoisResult, error) {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if name == "" {
		return WhoisResult{}, errors.New("domain name is empty")
	}

	// 1. Query the registrable domain, not the subdomain
	rootDomain, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return WhoisResult{}, fmt.Errorf("not a registrable domain %q: %w", name, err)
	}

	raw, err := s.lookupWithContext(ctx, rootDomain)
	if err != nil {
		return WhoisResult{}, fmt.Errorf("whois %s: %w", rootDomain, err)
	}

	// 2. Parse and normalise the registry's date format
	info, err := s.parse(raw)
	if err != nil {
		return WhoisResult{}, fmt.Errorf("parse whois %s: %w", rootDomain, err)
	}
	if info.Domain == nil || strings.TrimSpace(info.Domain.ExpirationDate) == "" {
		return WhoisResult{}, ErrNoExpiryDate
	}

	expiry, err := parseWhoisTime(info.Domain.ExpirationDate)
	if err != nil {
		logrus.WithFields(logrus.Fields{"domain": rootDomain, "raw": info.Domain.ExpirationDate}).Warn("[Whois] unparseable expiry date")
		return WhoisResult{}, err
	}

	result := WhoisResult{
		Domain:      name,
		RootDomain:  rootDomain,
		Status:      info.Domain.Status,
		NameServers: info.Domain.NameServers,
		ExpiryDate:  expiry,
		DaysLeft:    int(math.Floor(expiry.Sub(s.clock()).Hours() / 24)),
	}
	if info.Registrar != nil {
		result.Registrar = info.Registrar.Name
	}
	return result, nil
}

// whois.Whois has no context support; abandon the lookup when ctx ends.
func (s *InspectorService) lookupWithContext(ctx context.Context, domain string) (string, error) {
	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := s.lookup(domain)
		ch <- reply{raw, err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var whoisTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.00Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02/01/2006",
}

// parseWhoisTime normalises the registry-specific date formats, e.g.
// "2026-06-17 13:11:45 (UTC+8)".
func parseWhoisTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " ("); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}
	for _, layout := range whoisTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date parse fail: %q", raw)
}
