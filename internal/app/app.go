package app

import (
	"go.uber.org/fx"

	"github.com/nilemart/backend/internal/cache"
	"github.com/nilemart/backend/internal/config"
	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/event"
	"github.com/nilemart/backend/internal/gateway"
	"github.com/nilemart/backend/internal/logger"
	"github.com/nilemart/backend/internal/messaging"
	"github.com/nilemart/backend/internal/observability"
	repositoryaddress "github.com/nilemart/backend/internal/repository/address"
	repositorycart "github.com/nilemart/backend/internal/repository/cart"
	repositorycatalog "github.com/nilemart/backend/internal/repository/catalog"
	repositoryinventory "github.com/nilemart/backend/internal/repository/inventory"
	repositoryorder "github.com/nilemart/backend/internal/repository/order"
	repositorypayment "github.com/nilemart/backend/internal/repository/payment"
	repositorysequence "github.com/nilemart/backend/internal/repository/sequence"
	grpcserver "github.com/nilemart/backend/internal/server/grpc"
	httpserver "github.com/nilemart/backend/internal/server/http"
	serviceorder "github.com/nilemart/backend/internal/service/order"
	servicepayment "github.com/nilemart/backend/internal/service/payment"
	transporthttp "github.com/nilemart/backend/internal/transport/http"
	"github.com/nilemart/backend/internal/worker"
	workerorder "github.com/nilemart/backend/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	event.Module,
	gateway.Module,
	repositoryaddress.Module,
	repositorycart.Module,
	repositorycatalog.Module,
	repositoryinventory.Module,
	repositoryorder.Module,
	repositorypayment.Module,
	repositorysequence.Module,
	serviceorder.Module,
	servicepayment.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
