package electiondata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NoData is the briefing used when there is nothing to render.
const NoData = "No specific election data available."

const (
	constituenciesPerRegion = 10
	partiesShown            = 8
	regionsShown            = 6
	seatsShown              = 5
	timestampLayout         = "2006-01-02T15:04:05.000Z07:00"
)

type electionComplete struct {
	Election *struct {
		Name                any `json:"name"`
		State               any `json:"state"`
		TotalConstituencies any `json:"total_constituencies"`
		Type                any `json:"type"`
	} `json:"election"`
	Schedule *struct {
		AnnouncementDate any `json:"announcement_date"`
		Phases           []struct {
			PhaseNumber         any `json:"phase_number"`
			PollingDate         any `json:"polling_date"`
			PollingDay          any `json:"polling_day"`
			ConstituenciesCount any `json:"constituencies_count"`
		} `json:"phases"`
		CountingDate any `json:"counting_date"`
		CountingDay  any `json:"counting_day"`
	} `json:"schedule"`
	VoterInformation *struct {
		TotalSeats             any `json:"total_seats"`
		PollingHours           any `json:"polling_hours"`
		IdentificationRequired any `json:"identification_required"`
		ReservedSeats          *struct {
			ScheduledCaste any `json:"scheduled_caste"`
			ScheduledTribe any `json:"scheduled_tribe"`
			General        any `json:"general"`
		} `json:"reserved_seats"`
	} `json:"voter_information"`
}

type constituency struct {
	ACNumber   any    `json:"ac_number"`
	ACName     any    `json:"ac_name"`
	RegionName string `json:"region_name"`
	HeldParty  any    `json:"held_party"`
}

type constituenciesMaster struct {
	TotalConstituencies any            `json:"total_constituencies"`
	Constituencies      []constituency `json:"constituencies"`
}

type performance struct {
	SeatsWon  any `json:"seats_won"`
	VoteShare any `json:"vote_share"`
}

type partyPerformance struct {
	Parties []struct {
		PartyName string       `json:"party_name"`
		P2020     *performance `json:"performance_2020"`
		P2015     *performance `json:"performance_2015"`
		P2010     *performance `json:"performance_2010"`
	} `json:"parties"`
}

type regionResult struct {
	Region       string `json:"region"`
	NDASeats     any    `json:"nda_seats"`
	NDAVoteShare any    `json:"nda_vote_share"`
	MGBSeats     any    `json:"mgb_seats"`
	MGBVoteShare any    `json:"mgb_vote_share"`
}

type alliancePerformance struct {
	RegionalAnalysis map[string][]regionResult `json:"regional_analysis"`
}

type seat struct {
	ACName          any    `json:"ac_name"`
	SeatType        string `json:"seat_type"`
	StrongholdParty any    `json:"stronghold_party"`
	Competitiveness any    `json:"competitiveness"`
}

type seatAnalysis struct {
	Constituencies []seat `json:"constituencies"`
}

// Format renders s as a bounded, human-readable briefing. The output depends
// only on s.
func Format(s *Snapshot) string {
	if s.Empty() {
		return NoData
	}

	var b strings.Builder
	if s.Sample != nil {
		writeSample(&b, s.Sample)
	} else {
		b.WriteString("BIHAR ELECTION DATA 2025:\n\n")
		writeOverview(&b, s)
		writeConstituencies(&b, s)
		writeParties(&b, s)
		writeAlliances(&b, s)
		writeSeats(&b, s)
		writeSeatDistribution(&b, s)
		writeAdditional(&b, s)
	}

	if len(s.DataTypes) > 0 {
		fmt.Fprintf(&b, "Data Sources: %s\n", strings.Join(s.DataTypes, ", "))
	}
	if !s.LoadedAt.IsZero() {
		fmt.Fprintf(&b, "Data Last Loaded: %s\n", s.LoadedAt.UTC().Format(timestampLayout))
	}
	return b.String()
}

func decode(s *Snapshot, name string, v any) bool {
	raw, ok := s.JSON[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func writeSample(b *strings.Builder, e *SampleElection) {
	b.WriteString("ELECTION DATA:\n\n")
	fmt.Fprintf(b, "Election: %s\n", e.Name)
	fmt.Fprintf(b, "Date: %s\n", e.Date)
	fmt.Fprintf(b, "Type: %s\n", e.Type)
	if e.Message != "" {
		fmt.Fprintf(b, "Note: %s\n", e.Message)
	}
	b.WriteString("\n")
}

func writeOverview(b *strings.Builder, s *Snapshot) {
	var doc electionComplete
	if !decode(s, DatasetComplete, &doc) {
		return
	}
	if e := doc.Election; e != nil {
		fmt.Fprintf(b, "Election: %s\n", text(e.Name))
		fmt.Fprintf(b, "State: %s\n", text(e.State))
		fmt.Fprintf(b, "Total Constituencies: %s\n", text(e.TotalConstituencies))
		fmt.Fprintf(b, "Type: %s\n", text(e.Type))
	}
	if sc := doc.Schedule; sc != nil {
		b.WriteString("\nElection Schedule:\n")
		fmt.Fprintf(b, "Announcement Date: %s\n", text(sc.AnnouncementDate))
		for _, p := range sc.Phases {
			fmt.Fprintf(b, "Phase %s: %s (%s) - %s constituencies\n",
				text(p.PhaseNumber), text(p.PollingDate), text(p.PollingDay), text(p.ConstituenciesCount))
		}
		fmt.Fprintf(b, "Vote Counting: %s (%s)\n", text(sc.CountingDate), text(sc.CountingDay))
	}
	if v := doc.VoterInformation; v != nil {
		b.WriteString("\nVoter Information:\n")
		fmt.Fprintf(b, "Total Seats: %s\n", text(v.TotalSeats))
		fmt.Fprintf(b, "Polling Hours: %s\n", text(v.PollingHours))
		fmt.Fprintf(b, "ID Required: %s\n", yesNo(v.IdentificationRequired))
		if r := v.ReservedSeats; r != nil {
			fmt.Fprintf(b, "Reserved Seats - SC: %s\n", text(r.ScheduledCaste))
			fmt.Fprintf(b, "Reserved Seats - ST: %s\n", text(r.ScheduledTribe))
			fmt.Fprintf(b, "General Seats: %s\n", text(r.General))
		}
	}
	b.WriteString("\n")
}

func writeConstituencies(b *strings.Builder, s *Snapshot) {
	var doc constituenciesMaster
	if !decode(s, DatasetConstituencies, &doc) || doc.Constituencies == nil {
		return
	}
	b.WriteString("CONSTITUENCY INFORMATION:\n")
	fmt.Fprintf(b, "Total Constituencies: %s\n\n", text(doc.TotalConstituencies))

	var order []string
	groups := make(map[string][]constituency)
	for _, c := range doc.Constituencies {
		region := c.RegionName
		if region == "" {
			region = "Unknown"
		}
		if _, seen := groups[region]; !seen {
			order = append(order, region)
		}
		groups[region] = append(groups[region], c)
	}

	for _, region := range order {
		members := groups[region]
		fmt.Fprintf(b, "%s Region (%d constituencies):\n", region, len(members))
		for _, c := range members[:min(len(members), constituenciesPerRegion)] {
			fmt.Fprintf(b, "  AC-%s: %s (Currently held by: %s)\n", text(c.ACNumber), text(c.ACName), text(c.HeldParty))
		}
		if len(members) > constituenciesPerRegion {
			fmt.Fprintf(b, "  ... and %d more constituencies\n", len(members)-constituenciesPerRegion)
		}
		b.WriteString("\n")
	}
}

func writeParties(b *strings.Builder, s *Snapshot) {
	var doc partyPerformance
	if !decode(s, DatasetPartyPerformance, &doc) || doc.Parties == nil {
		return
	}
	b.WriteString("PARTY PERFORMANCE (2010-2020):\n")
	for _, p := range doc.Parties[:min(len(doc.Parties), partiesShown)] {
		if p.PartyName == "" || p.PartyName == "Total" || p.PartyName == "OTH" {
			continue
		}
		fmt.Fprintf(b, "%s:\n", p.PartyName)
		writePerformance(b, "2020", p.P2020)
		writePerformance(b, "2015", p.P2015)
		writePerformance(b, "2010", p.P2010)
	}
	b.WriteString("\n")
}

func writePerformance(b *strings.Builder, year string, p *performance) {
	var seats, share any
	if p != nil {
		seats, share = p.SeatsWon, p.VoteShare
	}
	fmt.Fprintf(b, "  %s: %s seats won (%.1f%% votes)\n", year, integer(seats), number(share))
}

func writeAlliances(b *strings.Builder, s *Snapshot) {
	var doc alliancePerformance
	if !decode(s, DatasetAlliance, &doc) || doc.RegionalAnalysis == nil {
		return
	}
	b.WriteString("ALLIANCE PERFORMANCE BY REGION:\n")
	if regions, ok := doc.RegionalAnalysis["2020"]; ok {
		b.WriteString("2020 Election - Regional Breakdown:\n")
		for _, r := range regions[:min(len(regions), regionsShown)] {
			if r.Region == "" || r.Region == "Region New" {
				continue
			}
			fmt.Fprintf(b, "  %s: NDA %s seats (%.1f%%), MGB %s seats (%.1f%%)\n",
				r.Region, text(r.NDASeats), number(r.NDAVoteShare), text(r.MGBSeats), number(r.MGBVoteShare))
		}
	}
	b.WriteString("\n")
}

func writeSeats(b *strings.Builder, s *Snapshot) {
	var doc seatAnalysis
	if !decode(s, DatasetSeatAnalysis, &doc) || doc.Constituencies == nil {
		return
	}
	var strongholds, swings []seat
	for _, c := range doc.Constituencies {
		kind := strings.ToLower(c.SeatType)
		if strings.Contains(kind, "stronghold") {
			strongholds = append(strongholds, c)
		}
		if strings.Contains(kind, "swing") {
			swings = append(swings, c)
		}
	}

	b.WriteString("SEAT ANALYSIS:\n")
	fmt.Fprintf(b, "Stronghold Seats: %d\n", len(strongholds))
	fmt.Fprintf(b, "Swing Seats: %d\n", len(swings))
	if len(strongholds) > 0 {
		b.WriteString("\nKey Stronghold Seats:\n")
		for _, c := range strongholds[:min(len(strongholds), seatsShown)] {
			fmt.Fprintf(b, "  %s: %s stronghold\n", text(c.ACName), text(c.StrongholdParty))
		}
	}
	if len(swings) > 0 {
		b.WriteString("\nKey Swing Seats to Watch:\n")
		for _, c := range swings[:min(len(swings), seatsShown)] {
			fmt.Fprintf(b, "  %s: %s competitiveness\n", text(c.ACName), text(c.Competitiveness))
		}
	}
	b.WriteString("\n")
}

func writeSeatDistribution(b *strings.Builder, s *Snapshot) {
	rows, ok := s.Tables[DatasetConstituencyTable]
	if !ok {
		return
	}
	counts := make(map[string]int)
	for _, row := range rows {
		party := strings.TrimSpace(row["Held_Party"])
		if party == "" {
			party = "Unknown"
		}
		counts[party]++
	}
	parties := make([]string, 0, len(counts))
	for p := range counts {
		parties = append(parties, p)
	}
	sort.Slice(parties, func(i, j int) bool {
		if counts[parties[i]] != counts[parties[j]] {
			return counts[parties[i]] > counts[parties[j]]
		}
		return parties[i] < parties[j]
	})

	b.WriteString("CURRENT SEAT DISTRIBUTION:\n")
	for _, p := range parties {
		fmt.Fprintf(b, "%s: %d seats\n", p, counts[p])
	}
	b.WriteString("\n")
}

var additionalDatasets = []struct {
	name  string
	label string
}{
	{DatasetTurnout, "Turnout analysis"},
	{DatasetWinners, "Winner analysis"},
	{DatasetElectors, "Elector details"},
}

func writeAdditional(b *strings.Builder, s *Snapshot) {
	var lines []string
	for _, d := range additionalDatasets {
		raw, ok := s.JSON[d.name]
		if !ok {
			continue
		}
		if n, ok := recordCount(raw); ok {
			lines = append(lines, fmt.Sprintf("  %s: %d records\n", d.label, n))
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("ADDITIONAL DATASETS:\n")
	for _, l := range lines {
		b.WriteString(l)
	}
	b.WriteString("\n")
}

// recordCount is the length of a top-level array, or of the first array
// field of a top-level object in key order.
func recordCount(raw json.RawMessage) (int, bool) {
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		return len(list), true
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return 0, false
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if json.Unmarshal(obj[k], &list) == nil {
			return len(list), true
		}
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func integer(v any) string {
	return strconv.FormatFloat(number(v), 'f', -1, 64)
}

func yesNo(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "Yes"
		}
	case string:
		if t != "" {
			return "Yes"
		}
	case float64:
		if t != 0 {
			return "Yes"
		}
	}
	return "No"
}
