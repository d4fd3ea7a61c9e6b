package scheduling

import "github.com/WailSalutem-Health-Care/appointment-service/internal/config"

// PolicyFromConfig builds the scheduling policy from service settings.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		Location:                   loc,
		CancellationWindow:         cfg.CancellationWindow,
		HorizonDays:                cfg.BookingHorizonDays,
		MaxHorizonDays:             cfg.MaxHorizonDays,
		DefaultSlotDuration:        cfg.DefaultSlotDuration,
		DefaultAppointmentDuration: cfg.DefaultAppointmentDuration,
	}, nil
}
