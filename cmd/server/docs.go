// Package main MediaGen Gateway API
//
//	@title			MediaGen Gateway API
//	@version		1.0
//	@description	Image, video and speech generation across fal, KIE, PPIO and ModelScope behind one request shape.
//
//	@license.name	Proprietary
//
//	@host			localhost:8080
//	@BasePath		/v1
//
//	@tag.name			Media
//	@tag.description	Generation, resume and task status
package main
