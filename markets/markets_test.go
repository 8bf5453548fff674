package markets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
)

func names(ms []Market) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	testCases := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortTVL, false},
		{"tvl", SortTVL, false},
		{" APY ", SortAPY, false},
		{"utilization", SortUtilization, false},
		{"volume", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSortKey(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSortKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSort(t *testing.T) {
	catalogue := Catalogue()

	testCases := []struct {
		key  SortKey
		want []string
	}{
		{SortTVL, []string{"Stable Pool", "Stellar Core Pool", "High Yield Pool", "Beta Pool"}},
		{SortAPY, []string{"Beta Pool", "High Yield Pool", "Stellar Core Pool", "Stable Pool"}},
		{SortUtilization, []string{"Stable Pool", "Stellar Core Pool", "High Yield Pool", "Beta Pool"}},
	}
	for _, tc := range testCases {
		t.Run(string(tc.key), func(t *testing.T) {
			got := names(Sort(catalogue, tc.key))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Sort(%s) mismatch (-want +got):\n%s", tc.key, diff)
			}
		})
	}

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		before := Catalogue()
		_ = Sort(catalogue, SortAPY)
		if diff := cmp.Diff(before, catalogue); diff != "" {
			t.Errorf("input changed (-want +got):\n%s", diff)
		}
	})

	t.Run("StableOnTies", func(t *testing.T) {
		in := []Market{{Name: "a", TVL: 1}, {Name: "b", TVL: 2}, {Name: "c", TVL: 1}}
		assert.Equal(t, []string{"b", "a", "c"}, names(Sort(in, SortTVL)))
	})
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Totals{}, Summarize(nil))

	got := Summarize([]Market{
		{TVL: 10, TotalBorrowed: 4, Utilization: 0.4},
		{TVL: 20, TotalBorrowed: 16, Utilization: 0.8},
	})
	assert.InDelta(t, 30, got.TVL, 1e-9)
	assert.InDelta(t, 20, got.Borrowed, 1e-9)
	assert.InDelta(t, 0.6, got.AvgUtilization, 1e-9)

	all := Summarize(Catalogue())
	assert.InDelta(t, 50_200_000, all.TVL, 1e-3)
}

func TestRiskBand(t *testing.T) {
	assert.Equal(t, RiskLow, RiskBand(85))
	assert.Equal(t, RiskLow, RiskBand(100))
	assert.Equal(t, RiskMedium, RiskBand(84))
	assert.Equal(t, RiskMedium, RiskBand(70))
	assert.Equal(t, RiskHigh, RiskBand(69))
	assert.Equal(t, "Low Risk", RiskLow.String())
	assert.Equal(t, "High Risk", Catalogue()[3].Risk().String())
}

func TestWithDashboard(t *testing.T) {
	base := Catalogue()[0]
	d := estimate.Dashboard{
		Summary: estimate.PoolSummary{
			TotalSupply:   1000,
			TotalBorrowed: 250,
			AvgSupplyApy:  0.04,
			AvgBorrowApy:  0.09,
			Reserves:      3,
		},
		BackstopAPR: 0.11,
	}

	got := base.WithDashboard(d)
	assert.Equal(t, 1000.0, got.TVL)
	assert.Equal(t, 250.0, got.TotalBorrowed)
	assert.InDelta(t, 0.25, got.Utilization, 1e-9)
	assert.Equal(t, 3, got.Assets)
	assert.Equal(t, 0.11, got.BackstopApr)
	assert.Equal(t, base.RiskScore, got.RiskScore)
	assert.Equal(t, base.Users, got.Users)

	empty := base.WithDashboard(estimate.Dashboard{})
	assert.Zero(t, empty.Utilization, "no supply means zero utilization")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Catalogue())
	require.Equal(t, 4, r.Len())

	t.Run("Get", func(t *testing.T) {
		m, ok := r.Get(stellar.StablePoolID)
		require.True(t, ok)
		assert.Equal(t, "Stable Pool", m.Name)

		_, ok = r.Get(blend.PoolID("CUNKNOWN"))
		assert.False(t, ok)
	})

	t.Run("AllIsACopy", func(t *testing.T) {
		all := r.All()
		all[0].Name = "changed"
		assert.Equal(t, "Stellar Core Pool", r.All()[0].Name)
	})

	t.Run("Search", func(t *testing.T) {
		assert.Equal(t, []string{"Stellar Core Pool", "High Yield Pool", "Stable Pool"}, names(r.Search("", false)))
		assert.Equal(t, []string{"Stellar Core Pool", "High Yield Pool", "Stable Pool", "Beta Pool"}, names(r.Search("", true)))
		assert.Equal(t, []string{"Stellar Core Pool", "Stable Pool"}, names(r.Search("  ST ", false)))
		assert.Empty(t, r.Search("beta", false))
		assert.Equal(t, []string{"Beta Pool"}, names(r.Search("BETA", true)))
	})

	t.Run("Update", func(t *testing.T) {
		m, _ := r.Get(stellar.CorePoolID)
		m.TVL = 1
		updated := r.Update(m)

		got, _ := updated.Get(stellar.CorePoolID)
		assert.Equal(t, 1.0, got.TVL)
		assert.Equal(t, 4, updated.Len())
		assert.Equal(t, "Stellar Core Pool", updated.All()[0].Name, "position kept")

		orig, _ := r.Get(stellar.CorePoolID)
		assert.Equal(t, 12_500_000.0, orig.TVL)
	})
}

func TestSelection(t *testing.T) {
	r := NewRegistry(Catalogue())
	var s Selection

	selected, err := s.Toggle(stellar.StablePoolID)
	require.NoError(t, err)
	assert.True(t, selected)
	_, _ = s.Toggle(stellar.CorePoolID)
	_, _ = s.Toggle(stellar.BetaPoolID)
	assert.True(t, s.Full())

	_, err = s.Toggle(stellar.HighYieldPoolID)
	assert.ErrorIs(t, err, ErrSelectionFull)
	assert.False(t, s.Contains(stellar.HighYieldPoolID))

	selected, err = s.Toggle(stellar.CorePoolID)
	require.NoError(t, err)
	assert.False(t, selected)

	_, err = s.Toggle(stellar.HighYieldPoolID)
	require.NoError(t, err)

	want := []blend.PoolID{stellar.StablePoolID, stellar.BetaPoolID, stellar.HighYieldPoolID}
	if diff := cmp.Diff(want, s.IDs()); diff != "" {
		t.Errorf("selection order (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Stable Pool", "Beta Pool", "High Yield Pool"}, names(s.Resolve(r)))

	s.Clear()
	assert.Zero(t, s.Len())
}
