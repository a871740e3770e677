package printscan

import "fmt"

// Standard MIB-II, HOST-RESOURCES-MIB and Printer-MIB (RFC 3805) OIDs
// queried by the printer probe.
const (
	// OIDSysDescr is the baseline liveness OID every SNMP agent answers.
	OIDSysDescr = "1.3.6.1.2.1.1.1.0"

	// Printer signals and attributes.
	OIDPageCount    = "1.3.6.1.2.1.43.10.2.1.4.1.1" // prtMarkerLifeCount.1.1
	OIDSerialNumber = "1.3.6.1.2.1.43.5.1.1.17.1"   // prtGeneralSerialNumber.1
	OIDDeviceType   = "1.3.6.1.2.1.25.3.2.1.2.1"    // hrDeviceType.1
	OIDDeviceDescr  = "1.3.6.1.2.1.25.3.2.1.3.1"    // hrDeviceDescr.1
	OIDHRPrinter    = "1.3.6.1.2.1.25.3.1.5"        // hrDevicePrinter
	OIDStatus       = "1.3.6.1.2.1.25.3.5.1.1.1"    // hrPrinterStatus.1
	OIDErrorState   = "1.3.6.1.2.1.25.3.5.1.2.1"    // hrPrinterDetectedErrorState.1

	oidSupplyDescrPrefix = "1.3.6.1.2.1.43.11.1.1.6.1" // prtMarkerSuppliesDescription
	oidSupplyMaxPrefix   = "1.3.6.1.2.1.43.11.1.1.8.1" // prtMarkerSuppliesMaxCapacity
	oidSupplyLevelPrefix = "1.3.6.1.2.1.43.11.1.1.9.1" // prtMarkerSuppliesLevel
)

// maxSupplySlots is the number of marker-supply rows walked per printer.
const maxSupplySlots = 8

func supplyDescrOID(slot int) string { return fmt.Sprintf("%s.%d", oidSupplyDescrPrefix, slot) }
func supplyMaxOID(slot int) string { return fmt.Sprintf("%s.%d", oidSupplyMaxPrefix, slot) }
func supplyLevelOID(slot int) string { return fmt.Sprintf("%s.%d", oidSupplyLevelPrefix, slot) }
