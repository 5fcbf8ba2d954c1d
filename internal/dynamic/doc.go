// Package dynamic computes the adjustable numeric parameters of market
// groups (handicap pairs and over/under lines) and expands text templates
// that reference them.
//
// Handicaps are a symmetric pair [home, away] with away == -home. Unless
// integer mode is selected, the home magnitude is snapped to the nearest
// half point away from zero so that no market can end in a push. Over/under
// lines are always snapped to floor(x) + 0.5.
//
// The parameters travel with a market group's description under
// pseudo-language keys (_dynamic, _hch, _hca, _ou). Those keys are attached
// to canonical text only and never rendered into a real language.
package dynamic
