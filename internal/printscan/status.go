package printscan

import "github.com/HerbHall/assetscout/pkg/models"

// hrPrinterStatus values with a direct mapping.
const (
	hrPrinterIdle     = 3
	hrPrinterPrinting = 4
	hrPrinterWarmup   = 5
)

// mapStatus folds hrPrinterStatus and hrPrinterDetectedErrorState into a
// PrinterStatus. A recognised status code always wins; otherwise any
// reported error state means Error and the fallback is Online.
func mapStatus(status Value, statusOK, errorStateOK bool) models.PrinterStatus {
	if statusOK {
		if code, ok := status.Int64(); ok {
			switch code {
			case hrPrinterIdle:
				return models.PrinterStatusIdle
			case hrPrinterPrinting:
				return models.PrinterStatusPrinting
			case hrPrinterWarmup:
				return models.PrinterStatusWarmingUp
			}
		}
	}
	if errorStateOK {
		return models.PrinterStatusError
	}
	return models.PrinterStatusOnline
}
