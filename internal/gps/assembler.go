// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"sort"
	"strconv"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// uereMeters turns HDOP into a horizontal accuracy estimate when the
// receiver does not report GST error ellipses.
const uereMeters = 5.0

// viewTTL is how many fixes a talker's sky view survives without a fresh
// GSV group. Some receivers send GSV less often than RMC.
const viewTTL = 5

// Assembler folds a stream of NMEA sentences into snapshots. GSV groups and
// GSA used-satellite lists are remembered until the next RMC, which closes
// one fix and yields a Snapshot. GST applies to the fix it arrives in only.
type Assembler struct {
	pending map[string][]Satellite // GSV group in progress, per talker
	view    map[string][]Satellite // last complete GSV group, per talker
	viewAge map[string]int         // fixes since the view was committed

	used     map[int]bool
	usedNext map[int]bool
	lastType string

	fix    Fix
	gstLat float64
	gstLon float64
	hasGST bool
}

func NewAssembler() *Assembler {
	return &Assembler{
		pending: make(map[string][]Satellite),
		view:    make(map[string][]Satellite),
		viewAge: make(map[string]int),
		used:    make(map[int]bool),
	}
}

// Feed consumes one sentence. It returns a snapshot and true when the
// sentence completed a fix.
func (a *Assembler) Feed(sentence nmea.Sentence) (Snapshot, bool) {
	defer func() { a.lastType = sentence.DataType() }()

	switch sentence.DataType() {
	case nmea.TypeGSV:
		m := sentence.(nmea.GSV)
		a.feedGSV(m)

	case nmea.TypeGSA:
		m := sentence.(nmea.GSA)
		// Consecutive GSA sentences (one per constellation) form one set.
		if a.lastType != nmea.TypeGSA || a.usedNext == nil {
			a.usedNext = make(map[int]bool)
		}
		for _, sv := range m.SV {
			prn, err := strconv.Atoi(sv)
			if err != nil || prn == 0 {
				continue
			}
			a.usedNext[normalizePRN(m.TalkerID(), prn)] = true
		}
		a.used = a.usedNext

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		a.fix.Latitude = m.Latitude
		a.fix.Longitude = m.Longitude
		a.fix.Altitude = m.Altitude
		a.fix.FixQuality = m.FixQuality
		a.fix.SatellitesUsed = int(m.NumSatellites)
		a.fix.HDOP = m.HDOP

	case TypeGST:
		m := sentence.(GST)
		a.gstLat = m.LatitudeError
		a.gstLon = m.LongitudeError
		a.hasGST = true

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		a.fix.Time = m.Time.String()
		a.fix.Date = m.Date.String()
		a.fix.Latitude = m.Latitude
		a.fix.Longitude = m.Longitude
		a.fix.SpeedKnots = m.Speed
		a.fix.CourseDeg = m.Course
		a.fix.Validity = string(m.Validity)
		snap := a.snapshot()
		a.endFix()
		return snap, true
	}

	return Snapshot{}, false
}

func (a *Assembler) feedGSV(m nmea.GSV) {
	talker := m.TalkerID()
	if m.MessageNumber <= 1 {
		a.pending[talker] = nil
	}
	for _, info := range m.Info {
		if info.SVPRNNumber == 0 {
			continue
		}
		a.pending[talker] = append(a.pending[talker], Satellite{
			Talker:    talker,
			PRN:       normalizePRN(talker, int(info.SVPRNNumber)),
			SNR:       float64(info.SNR),
			Elevation: int(info.Elevation),
			Azimuth:   int(info.Azimuth),
		})
	}
	if m.MessageNumber >= m.TotalMessages {
		a.view[talker] = a.pending[talker]
		a.viewAge[talker] = 0
		delete(a.pending, talker)
	}
}

// endFix ages the sky views, drops the stale ones and forgets the GST
// estimate of the fix just emitted.
func (a *Assembler) endFix() {
	a.hasGST = false
	for t := range a.view {
		a.viewAge[t]++
		if a.viewAge[t] >= viewTTL {
			delete(a.view, t)
			delete(a.viewAge, t)
		}
	}
}

func (a *Assembler) snapshot() Snapshot {
	fix := a.fix
	fix.Accuracy, fix.Grade = 0, ""
	switch {
	case a.hasGST:
		fix.Accuracy = math.Hypot(a.gstLat, a.gstLon)
	case fix.HDOP > 0:
		fix.Accuracy = fix.HDOP * uereMeters
	}
	if fix.Accuracy > 0 {
		fix.Grade = string(spoof.GradeAccuracy(fix.Accuracy))
	}

	talkers := make([]string, 0, len(a.view))
	for t := range a.view {
		talkers = append(talkers, t)
	}
	sort.Strings(talkers)

	var sats []Satellite
	for _, t := range talkers {
		for _, sat := range a.view[t] {
			sat.Used = a.used[sat.PRN]
			sats = append(sats, sat)
		}
	}
	sort.SliceStable(sats, func(i, j int) bool { return sats[i].PRN < sats[j].PRN })

	return Snapshot{Fix: fix, Satellites: sats}
}
