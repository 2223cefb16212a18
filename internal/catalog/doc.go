// Package catalog stores and serves primitive, composition and rule
// specs for Spatial Core.
//
// Specs are persisted as JSON documents in SQLite and cached in memory
// by the Service, which satisfies the primitive factory's and rule
// compiler's catalog interfaces. A YAML seed file can pre-populate the
// catalog at startup.
//
// # Key Types
//
//   - Repository: Persistence interface over the three spec tables
//   - SQLiteRepository: SQLite implementation used in production
//   - Service: Thread-safe in-memory cache wrapping Repository
//   - SeedFile: Startup document of entities and specs
//
// # Thread Safety
//
// Service is safe for concurrent use from multiple goroutines. Cached
// specs are shared; callers must treat them as immutable.
//
// # Usage
//
//	repo := catalog.NewSQLiteRepository(db.DB)
//	svc := catalog.NewService(repo)
//	svc.SetLogger(log)
//
//	if err := svc.Load(ctx); err != nil {
//	    return err
//	}
//
//	factory := primitive.NewFactory(provider, svc, poseCfg)
package catalog
