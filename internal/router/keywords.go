package router

// domainKeywords maps each canonical domain to the keyword set that
// contributes +1 to its score on a case-insensitive substring match. Kept as
// plain data so operators can audit and extend routing behavior without
// reading classifier code.
//
//	domain    | sample keywords
//	----------|----------------------------------------------------------
//	visa      | visa, kitas, kitap, sponsorship, overstay, immigration
//	tax       | tax, pajak, npwp, pph, ppn, spt
//	legal     | legal, contract, notary, akta, dispute, litigation
//	kbli      | kbli, business classification, company setup, pt pma
//	property  | property, land, hak pakai, hak milik, leasehold
//	team      | internal, staff, team, onboarding, sop
//	cultural  | culture, etiquette, custom, adat
var domainKeywords = map[string][]string{
	"visa": {
		"visa", "kitas", "kitap", "sponsorship", "overstay", "immigration",
		"e33g", "e28a", "work permit", "imta", "visa on arrival", "voa",
	},
	"tax": {
		"tax", "pajak", "npwp", "pph", "ppn", "spt", "tax return", "tax id",
		"withholding", "corporate tax",
	},
	"legal": {
		"legal", "contract", "notary", "akta", "dispute", "litigation",
		"agreement", "power of attorney", "legal opinion",
	},
	"kbli": {
		"kbli", "business classification", "company setup", "pt pma",
		"business license", "nib", "oss",
	},
	"property": {
		"property", "land", "hak pakai", "hak milik", "leasehold",
		"villa", "freehold", "land title",
	},
	"team": {
		"internal", "staff", "team", "onboarding", "sop", "handbook",
	},
	"cultural": {
		"culture", "etiquette", "custom", "adat", "tradition",
	},
}

// pricingKeywords feed the pricing detector. A case-insensitive substring
// match against any entry forces routing to the pricing collection.
var pricingKeywords = []string{
	"price", "cost", "fee", "harga", "biaya", "tarif", "berapa biaya",
	"how much", "pricing", "rate card",
}
