package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/reservations"
)

const sweepJobTimeout = time.Minute

// RegisterHoldSweep schedules the expired-hold reconciliation job. The
// engine already treats expired holds as released at every read and commit;
// this job only keeps the index and audit trail tidy.
func RegisterHoldSweep(s *Service, holds *reservations.HoldManager, cronExpr string) error {
	if holds == nil {
		return fmt.Errorf("hold sweep requires a hold manager")
	}

	jobName := "hold_sweep"
	jobLogger := log.With().
		Str("component", "hold_sweep_job").
		Str("job_name", jobName).
		Logger()

	_, err := s.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if swept := holds.SweepExpired(ctx); swept > 0 {
			jobLogger.Debug().Int("holds", swept).Msg("Expired holds reconciled")
		}
	})
	return err
}
