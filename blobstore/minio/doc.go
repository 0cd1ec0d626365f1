// Package minio provides a blob store on MinIO and other S3-compatible
// object stores such as Ceph, Garage and SeaweedFS.
//
// It carries no AWS dependencies, which makes it the natural backend for
// air-gapped and self-hosted deployments:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := miniostore.NewStore(client, "indexes", "products")
//
// Reads are served by ranged GETs and writes stream as multipart uploads,
// matching the behavior of the s3 package.
package minio
