package main

import (
	"fmt"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/protocol/tip"
	"github.com/YmClash/vegapunk-sub006/protocol/wgp"
	"go.uber.org/zap"
)

// ClientSet bundles the three protocol collaborators the coordinator needs.
type ClientSet struct {
	ADP adp.Client
	WGP wgp.Client
	TIP tip.Client
}

// ClientFactory builds the protocol clients from configuration. Transport
// details (addresses, codecs, auth) are the factory's concern; the daemon
// only wires the results into the coordinator.
type ClientFactory func(cfg *config.Config, logger *zap.Logger) (ClientSet, error)

var clientFactory ClientFactory

// RegisterClientFactory installs the protocol client constructors. Deployments
// register their transport implementation from an init function in a
// build-tagged file.
func RegisterClientFactory(f ClientFactory) {
	clientFactory = f
}

func buildClients(cfg *config.Config, logger *zap.Logger) (ClientSet, error) {
	if clientFactory == nil {
		return ClientSet{}, fmt.Errorf("no protocol client factory registered")
	}
	return clientFactory(cfg, logger)
}
