// Package stellar describes the Stellar networks the console can point at:
// the well-known lending pools, their oracles and the backstop contract per
// protocol version. It also owns decoding of raw query payloads, since the
// shape of each payload is a property of the deployed contracts.
package stellar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// KnownPool is a pool the console lists without being told about it.
type KnownPool struct {
	ID      blend.PoolID
	Name    string
	Version blend.Version
	Oracle  string
}

// Network is the static description of one deployment.
type Network struct {
	Name       string
	Passphrase string
	Backstops  map[blend.Version]string
	Pools      []KnownPool
}

// Asset contract ids on mainnet.
const (
	AssetUSDC = "CCRUMROOWNNRDZFIVKPDT7J3A37GU3GV6UBI567BYU7Y4KIDVK4WMPW2"
	AssetXLM  = "CA7K6ZOW23NT37SJUYU6U4E2226Z7PEUEKVRODA6YLH4L4TZ45HFX7UD"
	AssetBLND = "CANPGNBNNLJWO75B7D5AGIYCNOBC3PA3QUHYEMYHMYMI5X6HWXYOCKXW"
	AssetEURC = "CB62AAMGWITIXKR42IHFTJBPWVQPA662S3YARJIG3LHTDBIAJJLLXTBQ"
	AssetAQUA = "CAKD5IL7NJD2GC22S5FGWT4WJGSZG6RF7WU4J6T6QONEGXCK2ODRJEXD"
	AssetBTC  = "CDSAMBPGUJRGRJPLQPAVL2S52EVOWMYU625F2Z6UWYD55FIVNZHBEEWV"
	AssetUSDT = "CDGRMNHPKWYTM6PFTOXFSXGAEZAX3SIBA44OUCRAVY5WSS2U7KBPVMXT"
	AssetETH  = "CDDJ5IJSE65M43Q7RIDDMTMT6STPARRSIMVWJSU3D7CAG25OUTJUZOVQ"
)

// Pool ids on mainnet.
var (
	CorePoolID      = blend.MustPoolID("CCLBPEYS3XFK65MYYXSBMOGKUI4ODN5S7SUZBGD7NALUQF64QILLX5B5")
	HighYieldPoolID = blend.MustPoolID("CCM3VDWXQEGGAQ7IQGKKTNQVC5VMQRQAOJ22M6CGUJORMTQVVN644T4A")
	StablePoolID    = blend.MustPoolID("CDZXTTFZFOIRMRBNYZN5YNLERKC5G6DLGR3Z3N7XASUQD6QHWAGLNAHK")
	BetaPoolID      = blend.MustPoolID("CD2E4ZHHL44UR2PXH6G7VFDSDRGORS5U6JS4I6IMOAVS2QOPX4TVHLTO")
)

var Mainnet = Network{
	Name:       "mainnet",
	Passphrase: "Public Global Stellar Network ; September 2015",
	Backstops: map[blend.Version]string{
		blend.V1: "CCMXBC5BPECNRDTRNTW5MBLCASNMGCZZC3B2NTYHJY4GTHALJSILIT2G",
		blend.V2: "CDWWXC74ZNCT7DPBAPOXNIOSSDOAYIHYCEKPRA53R6WNCLCS5X2G6FAH",
	},
	Pools: []KnownPool{
		{ID: CorePoolID, Name: "Stellar Core Pool", Version: blend.V2, Oracle: "CC6S3WEQVD3RJNRCEUGGNJZMVNEPBD3FR3ARQHYSZ4FZKI3PCR3FPWWU"},
		{ID: HighYieldPoolID, Name: "High Yield Pool", Version: blend.V2, Oracle: "CANIGQTJWBFSI5OTMKYC465UOTFGCWQF37TVEHUV27XD2KGTOWIN275T"},
		{ID: StablePoolID, Name: "Stable Pool", Version: blend.V1, Oracle: "CAO6NOTF3TD6G365LFHAVGKLAKDRLCQOK7JGQZQN4UFCBHB2YGYRPCHZ"},
		{ID: BetaPoolID, Name: "Beta Pool", Version: blend.V2, Oracle: "CDSYWG5HHJPRPVNEWDLT2PUJX6GFPXYFQ4KKEIZSFOUCKQA6EG6EAWYS"},
	},
}

// Testnet only carries the beta pool.
var Testnet = Network{
	Name:       "testnet",
	Passphrase: "Test SDF Network ; September 2015",
	Backstops: map[blend.Version]string{
		blend.V2: Mainnet.Backstops[blend.V2],
	},
	Pools: []KnownPool{Mainnet.Pools[3]},
}

var networks = map[string]Network{
	Mainnet.Name: Mainnet,
	Testnet.Name: Testnet,
}

// ErrUnknownNetwork is returned by Lookup for names it does not know.
var ErrUnknownNetwork = errors.New("unknown network")

// Lookup returns the network registered under name (case-insensitive).
func Lookup(name string) (Network, error) {
	n, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

// Pool returns the known pool with the given id.
func (n Network) Pool(id blend.PoolID) (KnownPool, bool) {
	for _, p := range n.Pools {
		if p.ID == id {
			return p, true
		}
	}
	return KnownPool{}, false
}

// DefaultPool is the pool opened when none is given.
func (n Network) DefaultPool() blend.PoolID {
	if len(n.Pools) == 0 {
		return ""
	}
	return n.Pools[0].ID
}

// DecodeResultJSON decodes the raw payload of a data-fetch query into its
// typed value. The returned value is one of blend.PoolMeta, blend.Pool,
// blend.Oracle, blend.Backstop or blend.BackstopPool.
func DecodeResultJSON(query string, data json.RawMessage) (any, error) {
	switch query {
	case source.QueryPoolMeta:
		var typedData blend.PoolMeta
		if err := json.Unmarshal(data, &typedData); err != nil {
			return nil, err
		}
		return typedData, nil
	case source.QueryPool:
		var typedData blend.Pool
		if err := json.Unmarshal(data, &typedData); err != nil {
			return nil, err
		}
		return typedData, nil
	case source.QueryOracle:
		var typedData blend.Oracle
		if err := json.Unmarshal(data, &typedData); err != nil {
			return nil, err
		}
		return typedData, nil
	case source.QueryBackstop:
		var typedData blend.Backstop
		if err := json.Unmarshal(data, &typedData); err != nil {
			return nil, err
		}
		return typedData, nil
	case source.QueryBackstopPool:
		var typedData blend.BackstopPool
		if err := json.Unmarshal(data, &typedData); err != nil {
			return nil, err
		}
		return typedData, nil
	default:
		return nil, fmt.Errorf("unknown query %q", query)
	}
}
