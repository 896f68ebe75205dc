/*
Copyright © 2024 the wrfhail authors.
This file is part of wrfhail.

wrfhail is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfhail is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfhail.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package wrfhail contains tools for setting up and post-processing WRF
// simulations of hail events. It scaffolds WPS and WRF run directories for an
// event, reports the configuration stored in WRF input files, and
// derives hail-relevant fields from WRF output.
package wrfhail

// Version gives the version number.
const Version = "1.0.0"
