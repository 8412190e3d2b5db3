package db

import (
	"github.com/google/uuid"
	"github.com/vikstrous/dataloadgen"
)

type dataLoaderKey string

const (
	DataLoaderKeyTripData dataLoaderKey = "trip_data_loader"
)

// TripDataLoader batches the per-node lookups a tree fetch fans out into.
// One loader set is injected per request by the web middleware.
type TripDataLoader struct {
	GetUserList        *dataloadgen.Loader[uuid.UUID, *User]
	GetDestinationList *dataloadgen.Loader[uuid.UUID, *Destination]
	GetChildList       *dataloadgen.Loader[uuid.UUID, []uuid.UUID]
}

func NewTripDataLoader(nodes TripNodeDBWrapper, users UserDBWrapper, dests DestinationDBWrapper) *TripDataLoader {
	return &TripDataLoader{
		GetUserList:        dataloadgen.NewMappedLoader(users.DataLoaderGetUsers),
		GetDestinationList: dataloadgen.NewMappedLoader(dests.DataLoaderGetDestinations),
		GetChildList:       dataloadgen.NewMappedLoader(nodes.DataLoaderGetChildren),
	}
}
