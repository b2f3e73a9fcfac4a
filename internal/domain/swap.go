package domain

// QuoteResponse is the rendered quote returned to API consumers. Amounts are
// base unit decimal strings.
type QuoteResponse struct {
	ChainID            int64          `json:"chainId"`
	Price              string         `json:"price"`
	GuaranteedPrice    string         `json:"guaranteedPrice"`
	To                 string         `json:"to,omitempty"`
	Data               string         `json:"data,omitempty"`
	Value              string         `json:"value"`
	Gas                string         `json:"gas"`
	EstimatedGas       string         `json:"estimatedGas"`
	GasPrice           string         `json:"gasPrice"`
	ProtocolFee        string         `json:"protocolFee"`
	BuyTokenAddress    string         `json:"buyTokenAddress"`
	SellTokenAddress   string         `json:"sellTokenAddress"`
	BuyAmount          string         `json:"buyAmount"`
	SellAmount         string         `json:"sellAmount"`
	Sources            []SourceShare  `json:"sources"`
	Orders             []OrderSummary `json:"orders"`
	SellTokenToEthRate string         `json:"sellTokenToEthRate"`
	BuyTokenToEthRate  string         `json:"buyTokenToEthRate"`
	SourceFlags        string         `json:"sourceFlags"`

	EstimatedPriceImpact string `json:"estimatedPriceImpact"`
	PriceImpactSeverity  string `json:"priceImpactSeverity"`
}

type SourceShare struct {
	Name              string   `json:"name"`
	Proportion        string   `json:"proportion"`
	IntermediateToken string   `json:"intermediateToken,omitempty"`
	Hops              []string `json:"hops,omitempty"`
}

type OrderSummary struct {
	Source      string   `json:"source"`
	MakerToken  string   `json:"makerToken"`
	TakerToken  string   `json:"takerToken"`
	MakerAmount string   `json:"makerAmount"`
	TakerAmount string   `json:"takerAmount"`
	FillData    FillData `json:"fillData"`
}
