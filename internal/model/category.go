package model

// UncategorizedCategory is used when the extraction result has no category.
const UncategorizedCategory = "UNCATEGORIZED"

// DefaultCategories is the closed category set offered to the extraction
// provider when none is configured. It constrains the prompt only; mapped
// results are not checked against it.
var DefaultCategories = []string{
	"JEDZENIE",
	"NAPOJE",
	"ALKOHOL",
	"ADMINISTRACYJNE",
	"BANK",
	"BAR",
	"CHEMIA",
	"CIASTA",
	"DOSTAWY",
	"GAZ",
	"IMPREZY",
	"INNE RACHUNKI",
	"KAWA",
	"KONCESJA",
	"LODY",
	"LÓD",
	"PODATEK",
	"PRĄD",
	"REKLAMA",
	"REMONT",
	"ŚMIECIE",
	"UBEZPIECZENIE",
	"WODA",
	"WYPOSAŻENIE",
}
