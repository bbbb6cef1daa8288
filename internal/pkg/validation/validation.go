// Package validation registers the binding tags used by request DTOs on
// gin's validator engine.
package validation

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

var once sync.Once

// Register installs the custom tags once per process:
//
//	date      YYYY-MM-DD calendar date
//	hhmm      HH:MM time of day
//	yearmonth YYYY-MM month
func Register() error {
	var err error
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"date":      isDate,
		"hhmm":      isTimeOfDay,
		"yearmonth": isYearMonth,
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

func isDate(fl validator.FieldLevel) bool {
	_, err := wallclock.ParseDate(fl.Field().String())
	return err == nil
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	_, err := wallclock.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func isYearMonth(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01", fl.Field().String())
	return err == nil
}
