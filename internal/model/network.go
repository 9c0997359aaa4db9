// Package model defines domain models shared by the auditor components.
package model

// Network names a chain deployment.
type Network string

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)
