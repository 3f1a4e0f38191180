// Package simulation runs batches of offline negotiations described by a TOML scenario file.
package simulation

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
)

// Oracle kinds a scenario may name
const (
	OracleScripted = "scripted"
	OracleRules    = "rules"
	OracleLLM      = "llm"
)

const defaultConcurrency = 4

// Case is one negotiation in a scenario. The embedded request fields sit at the top level of the table.
type Case struct {
	Name                string `json:"name"`
	negotiation.Request `json:",squash"`

	// Listing resolves the product from the catalog when no product is given
	Listing string `json:"listing"`

	BuyerOracle  string    `json:"buyer_oracle"`
	SellerOracle string    `json:"seller_oracle"`
	BuyerOffers  []float64 `json:"buyer_offers"`
	SellerOffers []float64 `json:"seller_offers"`

	Repeat int `json:"repeat"`
}

// Session describes an optional automated marketplace run
type Session struct {
	market.CreateSessionRequest `json:",squash"`
	Oracle                      string `json:"oracle"`
}

// Scenario is the top-level scenario document
type Scenario struct {
	Concurrency  int      `json:"concurrency"`
	Negotiations []Case   `json:"negotiations"`
	Session      *Session `json:"session"`
}

// LoadScenario reads a TOML scenario file and applies defaults
func LoadScenario(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading scenario: %w", err)
	}

	var sc Scenario
	if err := k.UnmarshalWithConf("", &sc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("error unmarshalling scenario: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) normalize() error {
	if len(sc.Negotiations) == 0 && sc.Session == nil {
		return errors.New("scenario has no negotiations and no session")
	}
	if sc.Concurrency <= 0 {
		sc.Concurrency = defaultConcurrency
	}

	for i := range sc.Negotiations {
		c := &sc.Negotiations[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("negotiation-%d", i+1)
		}
		if c.Repeat <= 0 {
			c.Repeat = 1
		}
		if c.BuyerOracle == "" {
			c.BuyerOracle = OracleRules
		}
		if c.SellerOracle == "" {
			c.SellerOracle = OracleRules
		}
	}

	if s := sc.Session; s != nil {
		if s.Oracle == "" {
			s.Oracle = OracleRules
		}
		if s.Oracle == OracleScripted {
			return errors.New("session oracle must be rules or llm")
		}
		// parties in a scenario always start active
		for i := range s.Buyers {
			s.Buyers[i].Active = true
		}
		for i := range s.Sellers {
			s.Sellers[i].Active = true
		}
	}
	return nil
}

// UsesLLM reports whether any party in the scenario needs the LLM oracle
func (sc *Scenario) UsesLLM() bool {
	for _, c := range sc.Negotiations {
		if c.BuyerOracle == OracleLLM || c.SellerOracle == OracleLLM {
			return true
		}
	}
	return sc.Session != nil && sc.Session.Oracle == OracleLLM
}
