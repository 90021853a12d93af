// Package admin serves the hidden admin API used to manage product images and
// team members.
//
// A single admin signs in with a password checked against a bcrypt hash and
// receives an HS256 session token in an HttpOnly cookie. Uploaded product
// images are checked through their public URL by a Verifier, which drives an
// eager image loader per record and marks the record once the image loads.
package admin
