package certificates

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/charmbus/charmbus/pkg/log"
)

// Renewal defaults. The checker is a safety net against certificates
// quietly expiring when no relation event fires close to expiry.
const (
	DefaultRenewalSchedule  = "@hourly"
	DefaultRenewalThreshold = 24 * time.Hour
)

// RenewalChecker periodically inspects the requirer's assigned
// certificates and requests renewal for any that expire soon.
type RenewalChecker struct {
	requirer  *Requirer
	schedule  string
	threshold time.Duration
	logger    log.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// RenewalOption configures a RenewalChecker.
type RenewalOption func(*RenewalChecker)

// WithRenewalSchedule sets the cron schedule, e.g. "@every 30m".
func WithRenewalSchedule(schedule string) RenewalOption {
	return func(c *RenewalChecker) {
		c.schedule = schedule
	}
}

// WithRenewalThreshold sets how close to expiry a certificate must be
// before renewal is requested.
func WithRenewalThreshold(d time.Duration) RenewalOption {
	return func(c *RenewalChecker) {
		c.threshold = d
	}
}

// WithRenewalLogger sets the logger.
func WithRenewalLogger(logger log.Logger) RenewalOption {
	return func(c *RenewalChecker) {
		c.logger = logger
	}
}

// NewRenewalChecker creates a checker for the given requirer.
func NewRenewalChecker(requirer *Requirer, opts ...RenewalOption) *RenewalChecker {
	c := &RenewalChecker{
		requirer:  requirer,
		schedule:  DefaultRenewalSchedule,
		threshold: DefaultRenewalThreshold,
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("certificates-renewal")
	return c
}

// Start schedules the periodic check. It returns an error if the schedule
// expression does not parse.
func (c *RenewalChecker) Start() error {
	if c.cron != nil {
		return nil
	}
	c.cron = cron.New()
	entryID, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.Check(context.Background()); err != nil {
			c.logger.Error("renewal check failed", log.Err(err))
		}
	})
	if err != nil {
		c.cron = nil
		return fmt.Errorf("invalid renewal schedule %q: %w", c.schedule, err)
	}
	c.entryID = entryID
	c.cron.Start()
	c.logger.Info("renewal checker started", log.Str("schedule", c.schedule))
	return nil
}

// Stop cancels the periodic check and waits for a running one to finish.
func (c *RenewalChecker) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.cron = nil
}

// Check runs one renewal pass: every assigned certificate expiring within
// the threshold gets a renewal request. Certificates that cannot be parsed
// are logged and skipped.
func (c *RenewalChecker) Check(ctx context.Context) error {
	for _, attrs := range c.requirer.requests {
		cert, _, err := c.requirer.GetAssignedCertificate(ctx, attrs)
		if err != nil {
			return err
		}
		if cert == nil {
			continue
		}
		expiring, err := cert.ExpiresWithin(c.threshold)
		if err != nil {
			c.logger.Warn("could not determine certificate expiry",
				log.Str("common_name", attrs.CommonName),
				log.Err(err))
			continue
		}
		if !expiring {
			continue
		}
		c.logger.Info("certificate nearing expiry, requesting renewal",
			log.Str("common_name", attrs.CommonName))
		if err := c.requirer.RenewCertificate(ctx, attrs); err != nil {
			return err
		}
	}
	return nil
}
