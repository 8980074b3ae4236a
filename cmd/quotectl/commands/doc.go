// Package commands defines the quotectl CLI, which runs the shipping and quote engine offline.
//
// Commands
//
//   - ship      Price a single-leg shipment
//   - multileg  Price the same parcel over several legs
//   - convert   Convert an amount between currencies
//   - totals    Compute quote totals from items, rates and a shipping cost
//
// Every command prints JSON. The root command loads the tariff tables once (the
// embedded sample when --tables is empty) before any subcommand runs.
package commands
