package mocks

//go:generate mockery --name CollectionStore --srcpkg github.com/jolla3/maziwa-smart-sub000/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name EventSource --srcpkg github.com/jolla3/maziwa-smart-sub000/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name Source --srcpkg github.com/jolla3/maziwa-smart-sub000/internal/directory --output ./directory --outpkg directorymocks --with-expecter
