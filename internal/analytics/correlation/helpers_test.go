package correlation

import (
	"time"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

func day0() time.Time {
	d, _ := models.ParseDay("2024-01-01")
	return d
}
