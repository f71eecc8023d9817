package fit

import "github.com/divelogio/divecore/internal/divetypes"

// flushPending drains the fields aggregated into d.pending across the
// record just decoded, in the fixed order spec.md §4.7 specifies, then
// clears it. Each pendingFlag bit is handled independently, since a
// single data record can legally set more than one (a DEVICE_INFO record
// only ever sets one bit in practice, but the mechanism does not assume
// that).
func (d *Decoder) flushPending() {
	p := &d.pending
	if p.flags == 0 {
		return
	}

	if p.flags&pendingGasmix != 0 {
		d.flushGasmix(p)
	}
	if p.flags&pendingDeco != 0 {
		d.flushDeco(p)
	}
	if p.flags&pendingEvent != 0 {
		d.flushEvent(p)
	}
	if p.flags&pendingDeviceInfo != 0 {
		d.flushDeviceInfo(p)
	}
	if p.flags&pendingDecoModel != 0 {
		d.flushDecoModel(p)
	}
	if p.flags&pendingSensorProfile != 0 {
		d.flushSensorProfile(p)
	}
	if p.flags&pendingTankUpdate != 0 {
		d.flushTankUpdate(p)
	}
	if p.flags&pendingSetpointChange != 0 {
		d.flushSetpointChange(p)
	}

	p.reset()
}

// flushGasmix installs a DIVE_GAS message's gas mix into the field cache,
// indexed by the fixed field 254 (message_index) value the record
// carried (spec.md §4.8: "aggregate to pending Gasmix, indexed by the
// ANY.message_index field"). Nitrogen is derived as the complement of
// helium/oxygen rather than taken from the wire, same as every other
// backend. A status of 0 (disabled gas) is dropped instead of installed,
// per spec.md §4.7's "if gas_status > 0" guard.
func (d *Decoder) flushGasmix(p *pendingRecord) {
	if p.gasmixStatus <= 0 {
		return
	}
	d.cache.SetGasMix(p.gasmixIndex, divetypes.NewGasMix(p.gasmix.Helium, p.gasmix.Oxygen))
}

func (d *Decoder) flushDeco(p *pendingRecord) {
	if d.onSample == nil {
		return
	}
	d.onSample(sampleDecoStop(p.decoStopTimeS, p.decoCeilingM))
}

// flushEvent decodes one EVENT message's (event, type, data) tuple. Code
// 57 (gas switch) is special-cased to emit a GasMix sample carrying the
// mix index packed into event.data rather than a generic Event sample;
// codes 24/25 (CCR setpoint low/high) synthesize a SetpointChange pending
// record using the per-dive setpoint/depth table DIVE_SETTINGS installed,
// instead of emitting a generic Event sample (spec.md §4.7).
func (d *Decoder) flushEvent(p *pendingRecord) {
	switch p.eventNumber {
	case eventGasSwitch:
		if d.onSample != nil {
			d.onSample(sampleGasMix(int(p.eventData)))
		}
		return
	case eventSetpointLow:
		d.pending.setpointActualCbar = d.dive.setpointLowCbar
		d.flushSetpointChange(&d.pending)
		return
	case eventSetpointHigh:
		d.pending.setpointActualCbar = d.dive.setpointHighCbar
		d.flushSetpointChange(&d.pending)
		return
	}

	if d.onSample == nil {
		return
	}
	name, severity := describeEvent(p.eventNumber)
	d.onSample(sampleEvent(p.eventNumber, name, severity))
}

// flushDeviceInfo copies the primary device's firmware/serial/product
// strings into the cache. Only device_index 0 (the dive computer itself,
// as opposed to a paired sensor) is recorded (spec.md §4.7).
func (d *Decoder) flushDeviceInfo(p *pendingRecord) {
	if p.deviceIndex != 0 {
		return
	}
	if p.firmware != "" {
		d.cache.SetString("firmware", p.firmware)
		d.dive.firmware = p.firmware
	}
	if p.serial != "" {
		d.cache.SetString("serial", p.serial)
		d.dive.serial = p.serial
	}
	if p.product != "" {
		d.cache.SetString("product", p.product)
		d.dive.product = p.product
	}
}

// flushDecoModel formats the Buhlmann gradient-factor pair DIVE_SETTINGS
// carried into a single descriptive string field (spec.md §4.7).
func (d *Decoder) flushDecoModel(p *pendingRecord) {
	d.cache.SetString("deco_model", "Buhlmann ZHL-16C "+itoa(p.gfLow)+"/"+itoa(p.gfHigh))
}

// flushSensorProfile advances the per-dive sensor table. A sensor_type of
// 28 (tank pressure transmitter) grows the table with a new slot tied to
// this ANT channel ID; any other sensor_type is ignored, since only tank
// pressure sensors are addressed by TANK_UPDATE records (spec.md §4.7).
func (d *Decoder) flushSensorProfile(p *pendingRecord) {
	const sensorTypeTankPressure = 28
	if p.sensorType != sensorTypeTankPressure {
		return
	}
	if idx := d.dive.findSensorByID(p.sensorID); idx >= 0 {
		return
	}
	if len(d.dive.sensorTable) >= maxSensorSlots {
		return
	}
	tankIndex := len(d.dive.sensorTable)
	d.dive.sensorTable = append(d.dive.sensorTable, sensorSlot{
		ANTChannelID: p.sensorID,
		SensorType:   p.sensorType,
		TankIndex:    tankIndex,
	})
	d.cache.SetTankCount(len(d.dive.sensorTable))
}

// flushTankUpdate resolves the reporting sensor to a tank index via the
// sensor table and emits a Pressure sample. An update from an unknown
// sensor is dropped rather than guessed at (spec.md §4.7).
func (d *Decoder) flushTankUpdate(p *pendingRecord) {
	tankIndex := d.dive.findSensorByID(p.tankSensor)
	if tankIndex < 0 {
		return
	}
	if d.onSample != nil {
		d.onSample(samplePressure(tankIndex, float64(p.tankPressureCbar)/100.0))
	}
}

func (d *Decoder) flushSetpointChange(p *pendingRecord) {
	if d.onSample == nil {
		return
	}
	d.onSample(sampleSetpoint(float64(p.setpointActualCbar) / 100.0))
}
