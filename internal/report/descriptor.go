package report

// HID report descriptor items used below.
const (
	itemUsagePage     = 0x05
	itemUsage         = 0x09
	itemUsageMin      = 0x19
	itemUsageMax      = 0x29
	itemLogicalMin    = 0x15
	itemLogicalMax    = 0x25
	itemLogicalMax16  = 0x26
	itemPhysicalMin   = 0x35
	itemPhysicalMax16 = 0x46
	itemUnit          = 0x65
	itemReportSize    = 0x75
	itemReportCount   = 0x95
	itemReportID      = 0x85
	itemInput         = 0x81
	itemCollection    = 0xA1
	itemEndCollection = 0xC0

	pageGenericDesktop = 0x01
	pageButton         = 0x09

	usageGamepad   = 0x05
	usageX         = 0x30
	usageY         = 0x31
	usageZ         = 0x32
	usageRx        = 0x33
	usageRy        = 0x34
	usageRz        = 0x35
	usageHatSwitch = 0x39

	inputDataVarAbs     = 0x02
	inputConst          = 0x03
	inputDataVarAbsNull = 0x42
)

// Descriptor returns the HID report map describing l's frame, as served in the
// Report Map characteristic. Field order and widths match Encode exactly.
func Descriptor(l Layout, reportID uint8) []byte {
	d := []byte{
		itemUsagePage, pageGenericDesktop,
		itemUsage, usageGamepad,
		itemCollection, 0x01, // application
		itemReportID, reportID,
	}

	switch l {
	case Compact4:
		d = appendButtons(d, 4, 8)
		d = appendHat(d)
		d = appendStick(d, usageX, usageY)
	case Buttons5:
		d = appendButtons(d, 16, 16)
		d = appendHat(d)
		d = appendStick(d, usageX, usageY)
	case DualStick8:
		// 10 buttons then the four D-pad bits as buttons 11-14
		d = appendButtons(d, 14, 16)
		d = appendStick(d, usageX, usageY)
		d = appendStick(d, usageZ, usageRz)
		d = append(d,
			itemUsagePage, pageGenericDesktop,
			itemUsage, usageRx,
			itemUsage, usageRy,
			itemLogicalMin, 0x00,
			itemLogicalMax16, 0xFF, 0x00,
			itemReportSize, 8,
			itemReportCount, 2,
			itemInput, inputDataVarAbs,
		)
	default:
		return nil
	}

	return append(d, itemEndCollection)
}

// appendButtons declares n one-bit buttons padded to width bits.
func appendButtons(d []byte, n, width int) []byte {
	d = append(d,
		itemUsagePage, pageButton,
		itemUsageMin, 0x01,
		itemUsageMax, byte(n),
		itemLogicalMin, 0x00,
		itemLogicalMax, 0x01,
		itemReportSize, 1,
		itemReportCount, byte(n),
		itemInput, inputDataVarAbs,
	)
	if pad := width - n; pad > 0 {
		d = append(d,
			itemReportSize, 1,
			itemReportCount, byte(pad),
			itemInput, inputConst,
		)
	}
	return d
}

// appendHat declares a 4-bit hat switch with a null state, then 4 bits of padding.
func appendHat(d []byte) []byte {
	return append(d,
		itemUsagePage, pageGenericDesktop,
		itemUsage, usageHatSwitch,
		itemLogicalMin, 0x00,
		itemLogicalMax, 0x07,
		itemPhysicalMin, 0x00,
		itemPhysicalMax16, 0x3B, 0x01, // 315 degrees
		itemUnit, 0x14, // English rotation, degrees
		itemReportSize, 4,
		itemReportCount, 1,
		itemInput, inputDataVarAbsNull,
		itemUnit, 0x00,
		itemReportSize, 4,
		itemReportCount, 1,
		itemInput, inputConst,
	)
}

func appendStick(d []byte, ux, uy byte) []byte {
	return append(d,
		itemUsagePage, pageGenericDesktop,
		itemUsage, ux,
		itemUsage, uy,
		itemLogicalMin, 0x81, // -127
		itemLogicalMax, 0x7F,
		itemReportSize, 8,
		itemReportCount, 2,
		itemInput, inputDataVarAbs,
	)
}
