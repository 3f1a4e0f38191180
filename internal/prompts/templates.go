package prompts

// Role definitions
const (
	BuyerRole  = "You are a buyer negotiating the price of a product. Your goal is to purchase it for the lowest possible price."
	SellerRole = "You are a seller negotiating the price of a product. Your goal is to sell it for the highest possible price."
)

// Strategy guidance per role
const (
	BuyerStrategy = `STRATEGY:
- Open well below the seller's price but high enough to be taken seriously
- Make small concessions and never jump straight to your budget
- If the seller's price is within budget and fair, accept it by repeating that exact price`

	SellerStrategy = `STRATEGY:
- Defend your price and concede only in small steps
- Never drop straight to your floor
- If the buyer's price is acceptable, accept it by repeating that exact price`

	// ConfidentialityRule keeps the private bound out of the message text
	ConfidentialityRule = "Your limit is confidential. Never state it, hint at it, or use words like minimum or maximum in your message."
)

// Leverage guidance keyed by leverage level
var leverageGuidance = map[string]string{
	"high":   "You hold HIGH leverage: the market favours you. Be firm and concede slowly.",
	"medium": "You hold MEDIUM leverage: the market is balanced. Trade concessions for concessions.",
	"low":    "You hold LOW leverage: the market favours the other side. Be flexible enough to close a deal.",
}

// UrgencyNotice is appended when few rounds remain
const UrgencyNotice = "Time is running out. Only a few rounds remain before you walk away with nothing."

// JSONStructure is the required reply format
const JSONStructure = `Reply with ONLY a valid JSON object using double quotes:
{"offer": <number>, "message": "<one or two short sentences to the other party>"}`
