package printscan

import (
	"context"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/assetscout/pkg/models"
)

// get performs one GET bounded by the per-OID timeout.
func (s *Scanner) get(ctx context.Context, target, oid string) (Value, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OIDTimeout)
	defer cancel()
	return s.snmp.Get(ctx, target, oid)
}

// probeHost runs the liveness and classification sequence against one host
// and returns its record, or a nil record when the host has no SNMP agent
// or is not a printer. result is the metrics label for the outcome.
func (s *Scanner) probeHost(ctx context.Context, ip netip.Addr) (rec *models.PrinterRecord, result string) {
	target := ip.String()

	// Every agent answers sysDescr; silence means no agent.
	sysDescr, ok := s.get(ctx, target, OIDSysDescr)
	if !ok {
		return nil, probeNoAgent
	}

	pageCount, pageOK := s.get(ctx, target, OIDPageCount)
	serial, serialOK := s.get(ctx, target, OIDSerialNumber)
	devType, devTypeOK := s.get(ctx, target, OIDDeviceType)
	if !pageOK && !serialOK && !(devTypeOK && isPrinterDeviceType(devType)) {
		return nil, probeNotPrinter
	}

	devDescr, _ := s.get(ctx, target, OIDDeviceDescr)

	r := models.PrinterRecord{IPAddress: target}
	sys := sysDescr.String()
	dev := devDescr.String()
	r.Manufacturer = extractManufacturer(dev, sys)
	r.Model = extractModel(dev, sys)
	r.FirmwareVersion = extractFirmware(sys)
	if serialOK {
		r.SerialNumber = models.String(strings.TrimSpace(serial.String()))
	}
	if pageOK {
		if n, ok := pageCount.Int64(); ok && n >= 0 {
			r.PageCount = &n
		}
	}

	s.readSupplies(ctx, target).apply(&r)

	r.MACAddress = models.String(s.mac.ResolveMAC(ctx, ip))

	status, statusOK := s.get(ctx, target, OIDStatus)
	_, errorStateOK := s.get(ctx, target, OIDErrorState)
	r.Status = mapStatus(status, statusOK, errorStateOK)

	s.logger.Debug("printer found",
		zap.String("ip", target),
		zap.Stringp("manufacturer", r.Manufacturer),
		zap.Stringp("model", r.Model),
		zap.String("status", string(r.Status)),
	)
	return &r, probePrinter
}

// isPrinterDeviceType reports whether an hrDeviceType value is
// hrDevicePrinter. Agents differ on the leading dot.
func isPrinterDeviceType(v Value) bool {
	if v.Kind != KindObjectIdentifier && v.Kind != KindOctetString {
		return false
	}
	return strings.TrimPrefix(strings.TrimSpace(v.Str), ".") == OIDHRPrinter
}
