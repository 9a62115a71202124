package entity

import (
	"fmt"
	"strings"
)

// ResourceKind identifies a pollable farm resource.
type ResourceKind string

const (
	KindPoolLength      ResourceKind = "poolLength"
	KindPublicFarmData  ResourceKind = "publicFarmData"
	KindUserFarmData    ResourceKind = "userFarmData"
	KindCoreFarmData    ResourceKind = "coreFarmData"
	KindInitialFarmData ResourceKind = "initialFarmData"
)

// FetchKey identifies a distinct pollable resource. Equal keys denote the same
// logical request and are never fetched concurrently.
type FetchKey struct {
	Kind    ResourceKind `json:"kind"`
	ChainID uint64       `json:"chainId"`
	Account string       `json:"account,omitempty"`
	Variant FlagVariant  `json:"variant,omitempty"`
}

// ID renders the key as a stable string.
func (k FetchKey) ID() string {
	parts := []string{string(k.Kind), fmt.Sprintf("%d", k.ChainID)}
	if k.Account != "" {
		parts = append(parts, k.Account)
	}
	if k.Variant != "" {
		parts = append(parts, string(k.Variant))
	}
	return strings.Join(parts, ":")
}

func (k FetchKey) String() string {
	return k.ID()
}

// Snapshot is the payload of one successful fetch. Exactly one of the data
// fields is populated, matching Key.Kind.
type Snapshot struct {
	Key        FetchKey
	PoolLength int
	Public     map[int]PublicFarmSnapshot
	User       map[int]UserFarmSnapshot
	Farms      []FarmConfig
}
