package fit

// Global message numbers, the closed set enumerated by spec.md §4.8.
const (
	msgFile             uint16 = 0
	msgDeviceSettings    uint16 = 2
	msgSport             uint16 = 12
	msgSession           uint16 = 18
	msgLap               uint16 = 19
	msgRecord            uint16 = 20
	msgEvent             uint16 = 21
	msgDeviceInfo        uint16 = 23
	msgSensorProfile     uint16 = 147
	msgDiveSettings      uint16 = 258
	msgDiveGas           uint16 = 259
	msgDiveSummary       uint16 = 268
	msgTankUpdate        uint16 = 319
	msgTankSummary       uint16 = 323
)

// Field numbers with a globally fixed meaning regardless of message
// (spec.md §4.6).
const (
	fieldTimestamp    byte = 253
	fieldMessageIndex byte = 254
	fieldPartIndex    byte = 250
)

// messageTable is the static dispatch table: global message number to its
// MessageDescriptor. Built once at package init, mirroring the teacher's
// single static table of RecordID-to-decode-function (record.go,
// decode.go) rather than the source's macro-generated per-field handler
// table (spec.md §9's suggested data-driven replacement).
var messageTable map[uint16]*MessageDescriptor

func init() {
	messageTable = map[uint16]*MessageDescriptor{
		msgFile:          fileDescriptor(),
		msgDeviceSettings: deviceSettingsDescriptor(),
		msgSport:         sportDescriptor(),
		msgSession:       sessionDescriptor(),
		msgLap:           lapDescriptor(),
		msgRecord:        recordDescriptor(),
		msgEvent:         eventDescriptor(),
		msgDeviceInfo:    deviceInfoDescriptor(),
		msgSensorProfile: sensorProfileDescriptor(),
		msgDiveSettings:  diveSettingsDescriptor(),
		msgDiveGas:       diveGasDescriptor(),
		msgDiveSummary:   diveSummaryDescriptor(),
		msgTankUpdate:    tankUpdateDescriptor(),
		msgTankSummary:   tankSummaryDescriptor(),
	}
}

// lookupMessage resolves a global message number to its descriptor,
// synthesizing a placeholder for unknown numbers (spec.md §4.6).
func lookupMessage(globalMessage uint16) *MessageDescriptor {
	if md, ok := messageTable[globalMessage]; ok {
		return md
	}
	return placeholderDescriptor(globalMessage)
}

// --- FILE (0) ---------------------------------------------------------

func fileDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "file",
		Fields: map[byte]*FieldHandler{
			0: {"file_type", BaseEnum, func(d *Decoder, raw uint64, be bool) {}},
			1: {"manufacturer", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			2: {"product", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			3: {"serial", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			4: {"creation_time", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			5: {"number", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			6: {"other_time", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}

// --- DEVICE_SETTINGS (2) ------------------------------------------------

func deviceSettingsDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "device_settings",
		Fields: map[byte]*FieldHandler{
			0: {"utc_offset", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.dive.utcOffsetSec = int64(raw)
			}},
			1: {"time_offset", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.dive.localOffsetSec = int64(raw)
			}},
		},
	}
}

// --- SPORT (12) ---------------------------------------------------------

func sportDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "sport",
		Fields: map[byte]*FieldHandler{
			1: {"sub_sport", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.dive.subSport = int(raw)
				d.cache.SetDiveMode(subSportToDiveMode(int(raw)))
			}},
		},
	}
}

func subSportToDiveMode(subSport int) diveModeT {
	switch subSport {
	case 53, 54:
		return diveModeOC
	case 55:
		return diveModeGauge
	case 56, 57:
		return diveModeFreedive
	case 63:
		return diveModeCCR
	default:
		return diveModeOC
	}
}

// --- SESSION (18) --------------------------------------------------------

func sessionDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "session",
		Fields: map[byte]*FieldHandler{
			2: {"start_time", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				if !d.dive.haveDiveStart {
					d.dive.diveStartTimeFit = int64(raw)
					d.dive.haveDiveStart = true
				}
			}},
			3:  {"start_position_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_entry", isLat: true})},
			4:  {"start_position_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_entry"})},
			38: {"ne_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_ne", isLat: true})},
			39: {"ne_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_ne"})},
			40: {"sw_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_sw", isLat: true})},
			41: {"sw_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_sw"})},
			42: {"end_position_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_exit", isLat: true})},
			43: {"end_position_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "session_exit"})},
		},
	}
}

// --- LAP (19) --------------------------------------------------------------

func lapDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "lap",
		Fields: map[byte]*FieldHandler{
			3: {"start_position_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "lap_entry", isLat: true})},
			4: {"start_position_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "lap_entry"})},
			5: {"end_position_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "lap_exit", isLat: true})},
			6: {"end_position_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "lap_exit"})},
		},
	}
}

// --- RECORD (20) -------------------------------------------------------

func recordDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "record",
		Fields: map[byte]*FieldHandler{
			0: {"position_lat", BaseSint32, latLonHandler(decoderGPSTarget{field: "record", isLat: true})},
			1: {"position_long", BaseSint32, latLonHandler(decoderGPSTarget{field: "record"})},
			2: {"altitude", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			3: {"heart_rate", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleHeartbeat(float64(raw)))
			}},
			5: {"distance", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			6: {"temperature", BaseSint8, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleTemperature(float64(int8(raw))))
			}},
			7: {"abs_pressure", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			8: {"depth", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleDepth(float64(raw) / 1000.0))
			}},
			9: {"next_stop_depth", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeco
				d.pending.decoCeilingM = float64(raw) / 1000.0
			}},
			10: {"next_stop_time", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeco
				d.pending.decoStopTimeS = float64(raw)
			}},
			11: {"tts", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleTTS(float64(raw)))
			}},
			12: {"ndl", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleDecoNDL(float64(raw)))
			}},
			13: {"cns_load", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleCNS(float64(raw) / 100.0))
			}},
			14: {"n2_load", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			15: {"air_time_remaining", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.emitSample(sampleRBT(float64(raw) / 60.0))
			}},
			16: {"pressure_sac", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			17: {"volume_sac", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			18: {"rmv", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			19: {"ascent_rate", BaseSint16, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}

// --- EVENT (21) ------------------------------------------------------------

func eventDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "event",
		Fields: map[byte]*FieldHandler{
			0: {"event", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingEvent
				d.pending.eventNumber = int(raw)
			}},
			1: {"type", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingEvent
				d.pending.eventType = int(raw)
			}},
			2: {"data", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingEvent
				d.pending.eventData = uint32(raw)
			}},
			3: {"event_group", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingEvent
				d.pending.eventGroup = int(raw)
			}},
			4: {"tank_pressure_reserve", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			5: {"tank_pressure_critical", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			6: {"tank_pressure_lost", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}

// --- DEVICE_INFO (23) --------------------------------------------------

func deviceInfoDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "device_info",
		Fields: map[byte]*FieldHandler{
			0: {"device_index", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeviceInfo
				d.pending.deviceIndex = int(raw)
			}},
			3: {"serial_nr", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeviceInfo
				d.pending.serial = itoa(int(raw))
			}},
			4: {"product", BaseUint16, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeviceInfo
				d.pending.product = itoa(int(raw))
			}},
			5: {"firmware", BaseUint16, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDeviceInfo
				d.pending.firmware = itoa(int(raw))
			}},
		},
	}
}

// --- DIVE_GAS (259) ------------------------------------------------------

func diveGasDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "dive_gas",
		Fields: map[byte]*FieldHandler{
			0: {"helium", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingGasmix
				d.pending.gasmix.Helium = float64(raw)
			}},
			1: {"oxygen", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingGasmix
				d.pending.gasmix.Oxygen = float64(raw)
			}},
			2: {"status", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingGasmix
				d.pending.gasmixStatus = int(raw)
			}},
		},
	}
}

// --- DIVE_SUMMARY (268) --------------------------------------------------

func diveSummaryDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "dive_summary",
		Fields: map[byte]*FieldHandler{
			0:  {"avg_depth", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.cache.SetAvgDepth(float64(raw) / 1000.0)
			}},
			1:  {"max_depth", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.cache.SetMaxDepth(float64(raw) / 1000.0)
			}},
			2:  {"surface_interval", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			3:  {"start_cns", BaseUint8, func(d *Decoder, raw uint64, be bool) {}},
			4:  {"end_cns", BaseUint8, func(d *Decoder, raw uint64, be bool) {}},
			5:  {"start_n2", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			6:  {"end_n2", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			7:  {"o2_toxicity", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			8:  {"dive_number", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			9:  {"bottom_time", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.cache.SetDiveTime(float64(raw) / 1000.0)
			}},
			10: {"avg_pressure_sac", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			11: {"avg_volume_sac", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			12: {"avg_rmv", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}

// --- DIVE_SETTINGS (258) -------------------------------------------------

func diveSettingsDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "dive_settings",
		Fields: map[byte]*FieldHandler{
			0: {"name", BaseString, func(d *Decoder, raw uint64, be bool) {}},
			1: {"model", BaseEnum, func(d *Decoder, raw uint64, be bool) {}},
			2: {"gf_low", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDecoModel
				d.pending.gfLow = int(raw)
			}},
			3: {"gf_high", BaseUint8, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingDecoModel
				d.pending.gfHigh = int(raw)
			}},
			4: {"water_type", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.cache.SetSalinity(waterTypeToSalinity(int(raw), 0))
			}},
			5: {"water_density", BaseFloat32, func(d *Decoder, raw uint64, be bool) {
				density := float32FromBits(uint32(raw))
				sal, _ := d.cache.GetSalinity()
				sal.Density = float64(density)
				d.cache.SetSalinity(sal)
			}},
			6:  {"po2_warn", BaseUint8, func(d *Decoder, raw uint64, be bool) {}},
			7:  {"po2_critical", BaseUint8, func(d *Decoder, raw uint64, be bool) {}},
			8:  {"po2_deco", BaseUint8, func(d *Decoder, raw uint64, be bool) {}},
			9:  {"setpoint_low_cbar", BaseUint16, func(d *Decoder, raw uint64, be bool) {
				d.dive.setpointLowCbar = int(raw)
			}},
			10: {"setpoint_low_depth_mm", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.dive.setpointLowDepth = int(raw)
			}},
			11: {"setpoint_high_cbar", BaseUint16, func(d *Decoder, raw uint64, be bool) {
				d.dive.setpointHighCbar = int(raw)
			}},
			12: {"setpoint_high_depth_mm", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.dive.setpointHighDepth = int(raw)
			}},
		},
	}
}

// --- SENSOR_PROFILE (147) ------------------------------------------------

func sensorProfileDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "sensor_profile",
		Fields: map[byte]*FieldHandler{
			0: {"ant_channel_id", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingSensorProfile
				d.pending.sensorID = uint32(raw)
				d.pending.sensorProfile.ANTChannelID = uint32(raw)
			}},
			1: {"name", BaseString, func(d *Decoder, raw uint64, be bool) {}},
			2: {"enabled", BaseEnum, func(d *Decoder, raw uint64, be bool) {}},
			3: {"sensor_type", BaseEnum, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingSensorProfile
				d.pending.sensorType = int(raw)
				d.pending.sensorProfile.SensorType = int(raw)
			}},
			4: {"pressure_units", BaseEnum, func(d *Decoder, raw uint64, be bool) {}},
			5: {"rated_pressure", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			6: {"reserve_pressure", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			7: {"volume", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			8: {"used_for_gas_rate", BaseEnum, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}

// --- TANK_UPDATE (319) ---------------------------------------------------

func tankUpdateDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "tank_update",
		Fields: map[byte]*FieldHandler{
			0: {"sensor", BaseUint32, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingTankUpdate
				d.pending.tankSensor = uint32(raw)
			}},
			1: {"pressure", BaseUint16, func(d *Decoder, raw uint64, be bool) {
				d.pending.flags |= pendingTankUpdate
				d.pending.tankPressureCbar = int(raw)
			}},
		},
	}
}

// --- TANK_SUMMARY (323) --------------------------------------------------

func tankSummaryDescriptor() *MessageDescriptor {
	return &MessageDescriptor{
		Name: "tank_summary",
		Fields: map[byte]*FieldHandler{
			0: {"sensor", BaseUint32, func(d *Decoder, raw uint64, be bool) {}},
			1: {"start_pressure", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			2: {"end_pressure", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
			3: {"volume_used", BaseUint16, func(d *Decoder, raw uint64, be bool) {}},
		},
	}
}
