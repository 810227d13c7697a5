package electiondata

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const completeDoc = `{
	"election": {"name": "Bihar Legislative Assembly Election 2025", "state": "Bihar", "total_constituencies": 243, "type": "State Assembly"},
	"schedule": {
		"announcement_date": "2025-10-06",
		"phases": [
			{"phase_number": 1, "polling_date": "2025-11-06", "polling_day": "Thursday", "constituencies_count": 121},
			{"phase_number": 2, "polling_date": "2025-11-11", "polling_day": "Tuesday", "constituencies_count": 122}
		],
		"counting_date": "2025-11-14",
		"counting_day": "Friday"
	},
	"voter_information": {
		"total_seats": 243,
		"polling_hours": "7:00 AM - 6:00 PM",
		"identification_required": true,
		"reserved_seats": {"scheduled_caste": 38, "scheduled_tribe": 2, "general": 203}
	}
}`

const partiesDoc = `{"parties": [
	{"party_name": "RJD", "performance_2020": {"seats_won": 75, "vote_share": 23.11}, "performance_2015": {"seats_won": 80, "vote_share": "18.4"}, "performance_2010": {"seats_won": 22, "vote_share": 18.84}},
	{"party_name": "Total", "performance_2020": {"seats_won": 243, "vote_share": 100}},
	{"party_name": "BJP", "performance_2020": {"seats_won": 74, "vote_share": 19.46}},
	{"party_name": "OTH", "performance_2020": {"seats_won": 1, "vote_share": 5}}
]}`

const allianceDoc = `{"regional_analysis": {
	"2020": [
		{"region": "Magadh", "nda_seats": 6, "nda_vote_share": 38.27, "mgb_seats": 20, "mgb_vote_share": 41.7},
		{"region": "Region New", "nda_seats": 1, "nda_vote_share": 1, "mgb_seats": 1, "mgb_vote_share": 1},
		{"region": "Tirhut", "nda_seats": 30, "nda_vote_share": "40.04", "mgb_seats": 17, "mgb_vote_share": 37}
	],
	"2015": [{"region": "Magadh", "nda_seats": 5}]
}}`

const seatsDoc = `{"constituencies": [
	{"ac_name": "Patna Sahib", "seat_type": "BJP Stronghold", "stronghold_party": "BJP"},
	{"ac_name": "Raghopur", "seat_type": "Swing", "competitiveness": "High"},
	{"ac_name": "Danapur", "seat_type": "stronghold", "stronghold_party": "RJD"},
	{"ac_name": "Mokama", "seat_type": "Safe"}
]}`

func constituenciesDoc(perRegion map[string]int, order []string) string {
	var items []string
	n := 1
	for _, region := range order {
		for i := 0; i < perRegion[region]; i++ {
			items = append(items, fmt.Sprintf(`{"ac_number": %d, "ac_name": "%s-%d", "region_name": "%s", "held_party": "JD(U)"}`, n, region, i+1, region))
			n++
		}
	}
	return fmt.Sprintf(`{"total_constituencies": %d, "constituencies": [%s]}`, n-1, strings.Join(items, ","))
}

func fullSnapshot() *Snapshot {
	return &Snapshot{
		JSON: map[string]json.RawMessage{
			DatasetComplete:         json.RawMessage(completeDoc),
			DatasetConstituencies:   json.RawMessage(constituenciesDoc(map[string]int{"Tirhut": 12, "Magadh": 2}, []string{"Tirhut", "Magadh"})),
			DatasetPartyPerformance: json.RawMessage(partiesDoc),
			DatasetAlliance:         json.RawMessage(allianceDoc),
			DatasetSeatAnalysis:     json.RawMessage(seatsDoc),
			DatasetTurnout:          json.RawMessage(`{"summary": {"avg": 57.3}, "turnout": [{"ac": 1}, {"ac": 2}, {"ac": 3}]}`),
			DatasetElectors:         json.RawMessage(`[{"ac": 1}, {"ac": 2}]`),
		},
		Tables: map[string][]map[string]string{
			DatasetConstituencyTable: {
				{"AC_Name": "A", "Held_Party": "JD(U)"},
				{"AC_Name": "B", "Held_Party": "BJP"},
				{"AC_Name": "C", "Held_Party": "BJP"},
				{"AC_Name": "D", "Held_Party": ""},
				{"AC_Name": "E", "Held_Party": "CPI(ML)L"},
			},
		},
		DataTypes: []string{"JSON", "CSV"},
		LoadedAt:  time.Date(2025, 11, 1, 9, 30, 0, 123e6, time.UTC),
	}
}

func TestFormat_EmptySnapshot(t *testing.T) {
	require.Equal(t, NoData, Format(nil))
	require.Equal(t, NoData, Format(&Snapshot{}))
	require.Equal(t, NoData, Format(&Snapshot{JSON: map[string]json.RawMessage{}}))
}

func TestFormat_DefaultSnapshot(t *testing.T) {
	out := Format(DefaultSnapshot())
	require.Contains(t, out, "Election: Sample Election\n")
	require.Contains(t, out, "Date: 2024-11-05\n")
	require.Contains(t, out, "Type: General Election\n")
	require.Contains(t, out, "Data Sources: Default\n")
	require.NotContains(t, out, "Data Last Loaded")
}

func TestFormat_Overview(t *testing.T) {
	out := Format(fullSnapshot())

	require.True(t, strings.HasPrefix(out, "BIHAR ELECTION DATA 2025:\n\n"))
	require.Contains(t, out, "Election: Bihar Legislative Assembly Election 2025\nState: Bihar\nTotal Constituencies: 243\nType: State Assembly\n")
	require.Contains(t, out, "\nElection Schedule:\nAnnouncement Date: 2025-10-06\n")
	require.Contains(t, out, "Phase 1: 2025-11-06 (Thursday) - 121 constituencies\n")
	require.Contains(t, out, "Phase 2: 2025-11-11 (Tuesday) - 122 constituencies\n")
	require.Contains(t, out, "Vote Counting: 2025-11-14 (Friday)\n")
	require.Contains(t, out, "ID Required: Yes\n")
	require.Contains(t, out, "Reserved Seats - SC: 38\nReserved Seats - ST: 2\nGeneral Seats: 203\n")
}

func TestFormat_ConstituenciesGroupedAndTruncated(t *testing.T) {
	out := Format(fullSnapshot())

	require.Contains(t, out, "CONSTITUENCY INFORMATION:\nTotal Constituencies: 14\n\n")
	require.Contains(t, out, "Tirhut Region (12 constituencies):\n  AC-1: Tirhut-1 (Currently held by: JD(U))\n")
	require.Contains(t, out, "  AC-10: Tirhut-10 (Currently held by: JD(U))\n  ... and 2 more constituencies\n")
	require.NotContains(t, out, "Tirhut-11")
	require.Contains(t, out, "Magadh Region (2 constituencies):\n")
	require.Less(t, strings.Index(out, "Tirhut Region"), strings.Index(out, "Magadh Region"))
	require.Contains(t, out, "  AC-14: Magadh-2 (Currently held by: JD(U))\n\n")
}

func TestFormat_PartiesAndAlliances(t *testing.T) {
	out := Format(fullSnapshot())

	require.Contains(t, out, "PARTY PERFORMANCE (2010-2020):\nRJD:\n  2020: 75 seats won (23.1% votes)\n  2015: 80 seats won (18.4% votes)\n  2010: 22 seats won (18.8% votes)\n")
	require.Contains(t, out, "BJP:\n  2020: 74 seats won (19.5% votes)\n  2015: 0 seats won (0.0% votes)\n")
	require.NotContains(t, out, "Total:\n")
	require.NotContains(t, out, "OTH:\n")

	require.Contains(t, out, "ALLIANCE PERFORMANCE BY REGION:\n2020 Election - Regional Breakdown:\n")
	require.Contains(t, out, "  Magadh: NDA 6 seats (38.3%), MGB 20 seats (41.7%)\n")
	require.Contains(t, out, "  Tirhut: NDA 30 seats (40.0%), MGB 17 seats (37.0%)\n")
	require.NotContains(t, out, "Region New")
}

func TestFormat_SeatAnalysis(t *testing.T) {
	out := Format(fullSnapshot())

	require.Contains(t, out, "SEAT ANALYSIS:\nStronghold Seats: 2\nSwing Seats: 1\n")
	require.Contains(t, out, "\nKey Stronghold Seats:\n  Patna Sahib: BJP stronghold\n  Danapur: RJD stronghold\n")
	require.Contains(t, out, "\nKey Swing Seats to Watch:\n  Raghopur: High competitiveness\n")
	require.NotContains(t, out, "Mokama")
}

func TestFormat_SeatDistributionAndMetadata(t *testing.T) {
	out := Format(fullSnapshot())

	require.Contains(t, out, "CURRENT SEAT DISTRIBUTION:\nBJP: 2 seats\nCPI(ML)L: 1 seats\nJD(U): 1 seats\nUnknown: 1 seats\n")
	require.Contains(t, out, "ADDITIONAL DATASETS:\n  Turnout analysis: 3 records\n  Elector details: 2 records\n")
	require.NotContains(t, out, "Winner analysis")
	require.True(t, strings.HasSuffix(out, "Data Sources: JSON, CSV\nData Last Loaded: 2025-11-01T09:30:00.123Z\n"))
}

func TestFormat_Deterministic(t *testing.T) {
	snap := fullSnapshot()
	first := Format(snap)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Format(snap))
	}
}

func TestFormat_SkipsUndecodableDatasets(t *testing.T) {
	snap := &Snapshot{
		JSON: map[string]json.RawMessage{
			DatasetComplete:         json.RawMessage(`[1, 2, 3]`),
			DatasetPartyPerformance: json.RawMessage(partiesDoc),
		},
		DataTypes: []string{"JSON"},
	}
	out := Format(snap)
	require.NotContains(t, out, "Election Schedule")
	require.Contains(t, out, "PARTY PERFORMANCE")
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt("VoteBot", "BRIEFING")
	require.True(t, strings.HasPrefix(p, "You are VoteBot, a helpful, nonpartisan election assistant"))
	require.Contains(t, p, "- Maintain strict political neutrality\n")
	require.Contains(t, p, "- Never recommend specific candidates or parties\n")
	require.True(t, strings.HasSuffix(p, "You have access to the following election data:\nBRIEFING"))

	bare := SystemPrompt("", "  ")
	require.True(t, strings.HasPrefix(bare, "You are ElectionSathi,"))
	require.NotContains(t, bare, "You have access")
}
