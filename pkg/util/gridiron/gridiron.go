/*
Package gridiron is a small toolkit for NFL play-by-play analysis.

It pulls per-game play-by-play feeds from SportRadar, shapes them into tables,
stores them in SQLite, and offers two numeric helpers over the result: sample
covariance between two columns and a k-nearest-neighbours label prediction.
*/
package gridiron
